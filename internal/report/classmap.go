package report

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/wishart/internal/wishart"
)

// ClassImage paints one pixel per raster pixel using colors, indexed by
// class.
func ClassImage(res *wishart.Result, colors []color.RGBA) (*image.RGBA, error) {
	if len(res.Classes) != res.Width*res.Height {
		return nil, fmt.Errorf("class raster has %d pixels, want %dx%d", len(res.Classes), res.Width, res.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, res.Width, res.Height))
	for y := 0; y < res.Height; y++ {
		for x := 0; x < res.Width; x++ {
			k := int(res.Classes[y*res.Width+x])
			if k >= len(colors) {
				return nil, fmt.Errorf("class %d at (%d,%d) has no colour", k, x, y)
			}
			img.SetRGBA(x, y, colors[k])
		}
	}
	return img, nil
}

// WriteClassPNG writes the bare class image as PNG.
func WriteClassPNG(w io.Writer, res *wishart.Result) error {
	img, err := ClassImage(res, Colors(res))
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// WriteClassMapPNG writes the class image inside a titled plot with pixel
// axes.
func WriteClassMapPNG(w io.Writer, res *wishart.Result, title string) error {
	img, err := ClassImage(res, Colors(res))
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row (from bottom)"
	p.X.Min, p.X.Max = 0, float64(res.Width)
	p.Y.Min, p.Y.Max = 0, float64(res.Height)
	p.Add(plotter.NewImage(img, 0, 0, float64(res.Width), float64(res.Height)))

	width := 8 * vg.Inch
	height := vg.Length(float64(width) * float64(res.Height) / float64(res.Width))
	if height < 3*vg.Inch {
		height = 3 * vg.Inch
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render class map: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WriteClassSizesPNG writes a bar chart of pixel counts per class.
func WriteClassSizesPNG(w io.Writer, res *wishart.Result) error {
	if len(res.Legend) == 0 {
		return fmt.Errorf("no classes to plot")
	}
	colors := Colors(res)
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Class sizes (%s)", res.Kind)
	p.Y.Label.Text = "Pixels"

	labels := make([]string, len(res.Legend))
	barWidth := vg.Points(12)
	for i, e := range res.Legend {
		labels[i] = e.Label
		// One chart per class so each bar keeps its class colour.
		values := make(plotter.Values, len(res.Legend))
		values[i] = float64(e.Size)
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return fmt.Errorf("failed to build bar for %s: %w", e.Label, err)
		}
		bars.Color = colors[e.Index]
		bars.LineStyle.Width = 0
		p.Add(bars)
	}
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = -1

	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render class sizes: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
