// Package annotate turns a placement into a new annotation record.
package annotate

import (
	"errors"

	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/scene"
)

var ErrMissingInput = errors.New("cannot create annotation without foreground object and background image")

// Allocator hands out annotation ids. It starts one past the largest id of the
// loaded dataset and only ever moves forward.
type Allocator struct {
	next int64
}

func NewAllocator(anns []coco.Annotation) Allocator {
	var m int64
	for _, a := range anns {
		if a.ID > m {
			m = a.ID
		}
	}

	return Allocator{next: m + 1}
}

func (a Allocator) Peek() int64 {
	return a.next
}

// Observe moves the allocator past id if it has not got there yet.
func (a *Allocator) Observe(id int64) {
	if id >= a.next {
		a.next = id + 1
	}
}

func (a *Allocator) Next() (id int64) {
	id = a.next
	a.next++
	return
}

type Options struct {
	// RotateSegmentation rotates the translated polygons about the placement
	// center so they follow the rendered mask. Off by default, which keeps
	// the translate-only segmentation.
	RotateSegmentation bool
}

// Synthesize builds the annotation for obj placed with its center at center,
// rotated by deg degrees, on bg.
func Synthesize(obj *scene.Object, center geom.Point, deg float64, bg *scene.Background, id int64, opts Options) (ret coco.Annotation, err error) {
	if obj == nil || bg == nil {
		return ret, ErrMissingInput
	}

	x, y, w, h := obj.BBox[0], obj.BBox[1], obj.BBox[2], obj.BBox[3]
	rw, rh := geom.RotatedBoundingBox(w, h, deg)

	var seg [][]float64
	if opts.RotateSegmentation {
		// center the native box on the placement, then turn it like the mask
		seg = geom.TranslatePolygons(obj.Polygons, x, y, center.X, center.Y, w, h)
		seg = geom.RotatePolygons(seg, center.X, center.Y, deg)
	} else {
		seg = geom.TranslatePolygons(obj.Polygons, x, y, center.X, center.Y, rw, rh)
	}

	ret = coco.Annotation{
		ID:           id,
		ImageID:      bg.ID,
		CategoryID:   obj.CategoryID,
		Segmentation: coco.Segmentation{Polygons: seg},
		Area:         obj.Area,
		BBox:         [4]float64{center.X - rw/2, center.Y - rh/2, rw, rh},
		IsCrowd:      0,
	}

	return
}
