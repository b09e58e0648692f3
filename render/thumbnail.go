package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/scene"
)

const DefaultThumbnailSize = 250

// Thumbnail scales the masked object to fit a size*size square and rotates it
// by deg degrees about the square's center.
func Thumbnail(s *scene.Scene, o *scene.Object, deg float64, size int) *image.RGBA {
	if size <= 0 {
		size = DefaultThumbnailSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if o == nil {
		return dst
	}

	m := s.Mask(o)
	k := math.Min(float64(size)/float64(m.Bounds().Dx()), float64(size)/float64(m.Bounds().Dy()))
	half := float64(size) / 2

	s2d := placeTransform(m.Bounds(), geom.Point{X: half, Y: half}, deg, k)
	draw.BiLinear.Transform(dst, s2d, m, m.Bounds(), draw.Over, nil)

	return dst
}
