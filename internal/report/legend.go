package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/wishart/internal/wishart"
)

// LegendItem is one row of legend.json.
type LegendItem struct {
	Index     uint16  `json:"index"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
	Zone      int     `json:"zone,omitempty"`
	Size      int     `json:"size"`
	MeanPower float64 `json:"mean_power"`
	Color     string  `json:"color"`
}

// Legend is the document written to legend.json.
type Legend struct {
	Classifier string       `json:"classifier"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Passes     int          `json:"passes"`
	Converged  bool         `json:"converged"`
	NoData     string       `json:"no_data_color"`
	Classes    []LegendItem `json:"classes"`
}

// NewLegend builds the legend document for res.
func NewLegend(res *wishart.Result) Legend {
	colors := Colors(res)
	l := Legend{
		Classifier: res.Kind.String(),
		Width:      res.Width,
		Height:     res.Height,
		Passes:     len(res.Passes),
		Converged:  res.Converged,
		NoData:     Hex(colors[0]),
		Classes:    make([]LegendItem, 0, len(res.Legend)),
	}
	for _, e := range res.Legend {
		l.Classes = append(l.Classes, LegendItem{
			Index:     e.Index,
			Label:     e.Label,
			Category:  e.Category.String(),
			Zone:      e.Zone,
			Size:      e.Size,
			MeanPower: e.MeanPower,
			Color:     Hex(colors[e.Index]),
		})
	}
	return l
}

// WriteLegendJSON writes the legend as indented JSON.
func WriteLegendJSON(w io.Writer, res *wishart.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewLegend(res))
}

// WriteLegendHTML writes an interactive page with class sizes, mean power
// per class and the per-pass convergence trace.
func WriteLegendHTML(w io.Writer, res *wishart.Result, title string) error {
	legend := NewLegend(res)

	labels := make([]string, len(legend.Classes))
	sizes := make([]opts.BarData, len(legend.Classes))
	powers := make([]opts.BarData, len(legend.Classes))
	for i, c := range legend.Classes {
		labels[i] = c.Label
		style := &opts.ItemStyle{Color: c.Color}
		sizes[i] = opts.BarData{Name: c.Label, Value: c.Size, ItemStyle: style}
		powers[i] = opts.BarData{Name: c.Label, Value: c.MeanPower, ItemStyle: style}
	}

	sizeBar := charts.NewBar()
	sizeBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("classifier=%s classes=%d size=%dx%d", legend.Classifier, len(legend.Classes), legend.Width, legend.Height)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pixels"}),
	)
	sizeBar.SetXAxis(labels).AddSeries("pixels", sizes)

	powerBar := charts.NewBar()
	powerBar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean power"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	powerBar.SetXAxis(labels).AddSeries("mean power", powers)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(sizeBar, powerBar)

	if len(res.Passes) > 0 {
		passes := make([]string, len(res.Passes))
		drift := make([]opts.LineData, len(res.Passes))
		changed := make([]opts.LineData, len(res.Passes))
		for i, s := range res.Passes {
			passes[i] = fmt.Sprintf("%d", s.Pass)
			drift[i] = opts.LineData{Value: s.Drift}
			changed[i] = opts.LineData{Value: s.Changed}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
			charts.WithTitleOpts(opts.Title{Title: "Refinement passes", Subtitle: fmt.Sprintf("converged=%t", legend.Converged)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		)
		line.SetXAxis(passes).
			AddSeries("centre drift", drift).
			AddSeries("changed pixels", changed)
		page.AddCharts(line)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
