// Package geom holds the placement geometry shared by annotation synthesis and
// rendering: rotated extents, polygon remapping and pointer scaling.
package geom

import "math"

// snap clamps values that are zero up to floating point noise, so that
// rotations by multiples of 90 degrees give exact extents.
const snap = 1e-12

type Point struct {
	X, Y float64
}

// Rect is an on-screen display rectangle in display units.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func absTrig(deg float64) (c, s float64) {
	rad := Radians(deg)
	c, s = math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	if c < snap {
		c = 0
	}
	if s < snap {
		s = 0
	}

	return
}

// RotatedBoundingBox returns the axis aligned extents of a w*h rectangle
// rotated by deg degrees about its center.
func RotatedBoundingBox(w, h, deg float64) (rw, rh float64) {
	c, s := absTrig(deg)
	rw = w*c + h*s
	rh = w*s + h*c
	return
}

// TranslatePolygons moves absolute source polygons so that the source bbox
// origin (ox, oy) lands on the top-left corner of a rw*rh box centered at
// (cx, cy). Only a translation is applied.
func TranslatePolygons(polys [][]float64, ox, oy, cx, cy, rw, rh float64) [][]float64 {
	dx := cx - rw/2 - ox
	dy := cy - rh/2 - oy

	ret := make([][]float64, len(polys))
	for i, poly := range polys {
		out := make([]float64, len(poly))
		for j, v := range poly {
			if j%2 == 0 {
				out[j] = v + dx
			} else {
				out[j] = v + dy
			}
		}
		ret[i] = out
	}

	return ret
}

// RotatePolygons rotates every point clockwise (in image space, y down) by deg
// degrees about (cx, cy), the same sense as the rendered rotation.
func RotatePolygons(polys [][]float64, cx, cy, deg float64) [][]float64 {
	rad := Radians(deg)
	c, s := math.Cos(rad), math.Sin(rad)

	ret := make([][]float64, len(polys))
	for i, poly := range polys {
		out := make([]float64, len(poly))
		for j := 0; j+1 < len(poly); j += 2 {
			x, y := poly[j]-cx, poly[j+1]-cy
			out[j] = cx + x*c - y*s
			out[j+1] = cy + x*s + y*c
		}
		ret[i] = out
	}

	return ret
}

// PointerToPixel maps a pointer position in display units to native pixels.
// A zero sized display (before first layout) leaves that axis unscaled.
func PointerToPixel(px, py float64, display Rect, nativeW, nativeH int) (x, y float64) {
	x, y = px-display.X, py-display.Y
	if display.Width != 0 {
		x *= float64(nativeW) / display.Width
	}
	if display.Height != 0 {
		y *= float64(nativeH) / display.Height
	}

	return
}
