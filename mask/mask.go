// Package mask builds polygon clipped pixel buffers for foreground objects.
package mask

import (
	"image"
	"image/color"
	"math"

	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/draw"
)

// Crop copies the pixels under bbox ([x, y, w, h], rounded to whole pixels)
// into a new w*h buffer. Parts of the box outside src stay transparent.
func Crop(src image.Image, bbox [4]float64) (r *image.RGBA, origin image.Point) {
	origin = image.Point{X: int(math.Round(bbox[0])), Y: int(math.Round(bbox[1]))}
	w := MaxInt(int(math.Round(bbox[2])), 1)
	h := MaxInt(int(math.Round(bbox[3])), 1)

	r = image.NewRGBA(image.Rect(0, 0, w, h))
	if src != nil {
		draw.Draw(r, r.Bounds(), src, origin.Add(src.Bounds().Min), draw.Src)
	}

	return
}

// Build returns the crop of src under bbox with every pixel outside the union
// of polys made fully transparent. Without a usable first polygon the bare
// crop is returned.
func Build(src image.Image, bbox [4]float64, polys [][]float64) *image.RGBA {
	patch, origin := Crop(src, bbox)
	if len(polys) == 0 || len(polys[0]) < 6 {
		return patch
	}

	m := fill(patch.Rect, polys, float64(origin.X), float64(origin.Y))
	for y := 0; y < patch.Rect.Max.Y; y++ {
		for x := 0; x < patch.Rect.Max.X; x++ {
			if m.AlphaAt(x, y).A == 0 {
				patch.SetRGBA(x, y, color.RGBA{})
			}
		}
	}

	return patch
}

// fill rasterizes all polygons into one path and fills it once, so
// overlapping polygons are unioned. Coverage is binarised at one half.
func fill(bounds image.Rectangle, polys [][]float64, ox, oy float64) *image.Alpha {
	canvas := image.NewRGBA(bounds)
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillColor(color.RGBA{0, 0, 0, 255})
	gc.SetFillRule(draw2d.FillRuleWinding)

	for _, bc := range polys {
		if len(bc) < 6 {
			continue
		}

		gc.MoveTo(bc[0]-ox, bc[1]-oy)
		for i := 2; i+1 < len(bc); i += 2 {
			gc.LineTo(bc[i]-ox, bc[i+1]-oy)
		}
		gc.Close()
	}
	gc.Fill()

	m := image.NewAlpha(bounds)
	for i := range m.Pix {
		if canvas.Pix[i*4+3] >= 0x80 {
			m.Pix[i] = 0xff
		}
	}

	return m
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
