// Package report renders classification results as images, charts and a
// legend file.
package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot/palette"

	"github.com/banshee-data/wishart/internal/wishart"
)

// NoDataColor is used for class 0.
var NoDataColor = color.RGBA{A: 255}

// categoryHue is the base hue of each Freeman-Durden category.
var categoryHue = map[wishart.Category]float64{
	wishart.CategoryVolume:  1.0 / 3, // green
	wishart.CategoryDouble:  0,       // red
	wishart.CategorySurface: 2.0 / 3, // blue
}

// Colors returns one colour per output class, indexed by class index, so
// Colors(res)[0] is NoDataColor. Freeman-Durden classes are shades of their
// category hue, brighter for higher mean power. Zone classes are spread
// across a rainbow.
func Colors(res *wishart.Result) []color.RGBA {
	out := make([]color.RGBA, res.NumClasses()+1)
	out[0] = NoDataColor
	if res.Kind != wishart.KindFreemanDurden {
		rainbow := palette.Rainbow(max(res.NumClasses(), 1), 0, 5.0/6, 1, 1, 1).Colors()
		for i, e := range res.Legend {
			out[e.Index] = toRGBA(rainbow[i])
		}
		return out
	}

	counts := make(map[wishart.Category]int)
	for _, e := range res.Legend {
		counts[e.Category]++
	}
	rank := make(map[wishart.Category]int)
	for _, e := range res.Legend {
		n := counts[e.Category]
		v := 1.0
		if n > 1 {
			v = 0.45 + 0.55*float64(rank[e.Category])/float64(n-1)
		}
		rank[e.Category]++
		out[e.Index] = toRGBA(palette.HSVA{H: categoryHue[e.Category], S: 0.85, V: v, A: 1})
	}
	return out
}

func toRGBA(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
