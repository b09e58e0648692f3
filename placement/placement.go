// Package placement keeps the ordered list of objects stamped onto
// backgrounds during a session.
package placement

import (
	"iter"

	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/scene"
)

// Placement is one object stamped at Center, rotated by Angle degrees. It owns
// its annotation.
type Placement struct {
	Object     *scene.Object
	Center     geom.Point
	Angle      float64
	Annotation coco.Annotation
}

// Store is append-only. Entries are never edited or removed; Clear drops the
// whole list when a new dataset replaces the current one.
//
// A Store is a value: appending to any copy, old or new, extends that copy only.
type Store struct {
	items []Placement
}

func (s Store) Append(p Placement) Store {
	// cap the slice so append never writes into an array another copy can see
	s.items = append(s.items[:len(s.items):len(s.items)], p)
	return s
}

func (s Store) Clear() Store {
	return Store{}
}

func (s Store) Len() int {
	return len(s.items)
}

func (s Store) At(i int) *Placement {
	return &s.items[i]
}

// All yields every placement in append order.
func (s Store) All() iter.Seq[*Placement] {
	return func(yield func(*Placement) bool) {
		for i := range s.items {
			if !yield(&s.items[i]) {
				return
			}
		}
	}
}

// ByBackground yields, in append order, the placements whose annotation
// belongs to imageID. The sequence can be ranged over any number of times.
func (s Store) ByBackground(imageID int64) iter.Seq[*Placement] {
	return func(yield func(*Placement) bool) {
		for i := range s.items {
			if s.items[i].Annotation.ImageID != imageID {
				continue
			}
			if !yield(&s.items[i]) {
				return
			}
		}
	}
}

// Annotations returns copies of every placement's annotation in append order.
func (s Store) Annotations() []coco.Annotation {
	ret := make([]coco.Annotation, 0, len(s.items))
	for _, p := range s.items {
		ret = append(ret, p.Annotation)
	}

	return ret
}
