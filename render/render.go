// Package render composites placements onto backgrounds. The interactive
// frame and the export image go through the same composite step, so a
// placement looks the same in both.
package render

import (
	"image"
	"image/color"
	"iter"
	"math"

	"github.com/llgcode/draw2d/draw2dimg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/placement"
	"github.com/model-collapse/aug-editor/scene"
)

const DefaultPreviewAlpha = 0.7

var guideColor = color.RGBA{0x34, 0x98, 0xdb, 0xff}

// View is the pointer state of the interactive surface.
type View struct {
	Pointer  geom.Point
	Hovering bool
	// Object is previewed under the pointer at Angle degrees when hovering.
	Object *scene.Object
	Angle  float64
}

type Options struct {
	PreviewAlpha float64
}

// Export draws bg and every placement that belongs to it, in append order.
func Export(s *scene.Scene, bg *scene.Background, store placement.Store) *image.RGBA {
	if bg == nil {
		return nil
	}

	return composite(s, bg, store.ByBackground(bg.ID))
}

// Frame is the full interactive repaint: the export composite, then the
// preview under the pointer and the crosshair.
func Frame(s *scene.Scene, bg *scene.Background, store placement.Store, v View, opts Options) *image.RGBA {
	if bg == nil {
		return nil
	}

	surf := composite(s, bg, store.ByBackground(bg.ID))
	if !v.Hovering {
		return surf
	}

	alpha := opts.PreviewAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultPreviewAlpha
	}

	if v.Object != nil {
		drawObject(surf, fade(s.Mask(v.Object), alpha), v.Pointer, v.Angle)
	}
	drawCrosshair(draw2dimg.NewGraphicContext(surf), v.Pointer, surf.Bounds())

	return surf
}

func composite(s *scene.Scene, bg *scene.Background, seq iter.Seq[*placement.Placement]) *image.RGBA {
	surf := image.NewRGBA(image.Rect(0, 0, bg.Width, bg.Height))
	if bg.Surface != nil {
		draw.Draw(surf, surf.Bounds(), bg.Surface, bg.Surface.Bounds().Min, draw.Src)
	}

	for p := range seq {
		if p.Object == nil {
			continue
		}
		drawObject(surf, s.Mask(p.Object), p.Center, p.Angle)
	}

	return surf
}

// drawObject draws m centered on center, rotated by deg degrees about it.
func drawObject(dst *image.RGBA, m *image.RGBA, center geom.Point, deg float64) {
	draw.BiLinear.Transform(dst, placeTransform(m.Bounds(), center, deg, 1), m, m.Bounds(), draw.Over, nil)
}

// placeTransform maps src so that its center lands on center after scaling by
// k and rotating clockwise (y down) by deg degrees.
func placeTransform(src image.Rectangle, center geom.Point, deg, k float64) f64.Aff3 {
	w, h := float64(src.Dx()), float64(src.Dy())
	rad := geom.Radians(deg)
	c, s := math.Cos(rad), math.Sin(rad)
	a, b := c*k, -s*k
	d, e := s*k, c*k

	return f64.Aff3{
		a, b, center.X - a*w/2 - b*h/2,
		d, e, center.Y - d*w/2 - e*h/2,
	}
}

func drawCrosshair(gc *draw2dimg.GraphicContext, p geom.Point, bounds image.Rectangle) {
	gc.Save()
	gc.SetStrokeColor(guideColor)
	gc.SetLineWidth(1)
	gc.SetLineDash([]float64{5, 5}, 0)

	gc.MoveTo(0, p.Y)
	gc.LineTo(float64(bounds.Dx()), p.Y)
	gc.Stroke()

	gc.MoveTo(p.X, 0)
	gc.LineTo(p.X, float64(bounds.Dy()))
	gc.Stroke()
	gc.Restore()
}

// fade returns a copy of m with every pixel scaled by alpha.
func fade(m *image.RGBA, alpha float64) *image.RGBA {
	r := image.NewRGBA(m.Bounds())
	for i, v := range m.Pix {
		r.Pix[i] = uint8(float64(v)*alpha + 0.5)
	}

	return r
}
