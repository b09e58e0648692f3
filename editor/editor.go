// Package editor holds the session state and the only ways to change it.
// Every change goes through Apply, which returns the next state.
package editor

import (
	"github.com/model-collapse/aug-editor/annotate"
	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/placement"
	"github.com/model-collapse/aug-editor/scene"
)

const RotationStep = 15

// Rotation is an angle in whole degrees, always within [0, 360).
type Rotation int

// Step turns r by n steps of RotationStep degrees; negative n turns back.
func (r Rotation) Step(n int) Rotation {
	d := (int(r) + n*RotationStep) % 360
	if d < 0 {
		d += 360
	}

	return Rotation(d)
}

type State struct {
	Scene      *scene.Scene
	Placements placement.Store
	Rotation   Rotation
	IDs        annotate.Allocator

	Category    int64
	HasCategory bool
	Background  int
	Foreground  int
}

type Action interface {
	apply(s State) State
}

// Load replaces the session with a freshly loaded scene.
type Load struct {
	Scene *scene.Scene
}

type Clear struct{}

// Rotate turns the session rotation by Steps steps. Repeat marks a held key
// and is ignored.
type Rotate struct {
	Steps  int
	Repeat bool
}

type AppendPlacement struct {
	Placement placement.Placement
}

// SelectCategory switches the foreground class and goes back to its first object.
type SelectCategory struct {
	ID int64
}

// SelectBackground and SelectForeground take any index and wrap it into range.
type SelectBackground struct {
	Index int
}

type SelectForeground struct {
	Index int
}

func Apply(s State, a Action) State {
	return a.apply(s)
}

func (a Load) apply(State) State {
	s := State{Scene: a.Scene}
	if a.Scene == nil || a.Scene.Dataset == nil {
		return s
	}

	s.IDs = annotate.NewAllocator(a.Scene.Dataset.Annotations)
	if cats := a.Scene.Categories(); len(cats) > 0 {
		s.Category, s.HasCategory = cats[0].ID, true
	}

	return s
}

func (Clear) apply(State) State {
	return State{}
}

func (a Rotate) apply(s State) State {
	if !a.Repeat {
		s.Rotation = s.Rotation.Step(a.Steps)
	}

	return s
}

func (a AppendPlacement) apply(s State) State {
	s.Placements = s.Placements.Append(a.Placement)
	s.IDs.Observe(a.Placement.Annotation.ID)
	return s
}

func (a SelectCategory) apply(s State) State {
	s.Category, s.HasCategory = a.ID, true
	s.Foreground = 0
	return s
}

func (a SelectBackground) apply(s State) State {
	s.Background = wrap(a.Index, len(s.Scene.Images()))
	return s
}

func (a SelectForeground) apply(s State) State {
	s.Foreground = wrap(a.Index, len(s.Objects()))
	return s
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}

	i %= n
	if i < 0 {
		i += n
	}

	return i
}

// CurrentBackground is the decoded background at the selected index, or nil
// when there is none or it failed to decode.
func (s State) CurrentBackground() *scene.Background {
	imgs := s.Scene.Images()
	if s.Background < 0 || s.Background >= len(imgs) {
		return nil
	}

	return s.Scene.Background(imgs[s.Background].ID)
}

// Objects lists the foreground objects of the selected category.
func (s State) Objects() []*scene.Object {
	if s.Scene == nil || !s.HasCategory {
		return nil
	}

	return s.Scene.Objects[s.Category]
}

func (s State) CurrentObject() *scene.Object {
	objs := s.Objects()
	if s.Foreground < 0 || s.Foreground >= len(objs) {
		return nil
	}

	return objs[s.Foreground]
}

// Place stamps the selected object at the pointer with the current rotation.
// Without a selected object or background nothing happens and ok is false.
func Place(s State, pointer geom.Point, display geom.Rect, opts annotate.Options) (next State, ok bool) {
	obj, bg := s.CurrentObject(), s.CurrentBackground()
	if obj == nil || bg == nil {
		return s, false
	}

	x, y := geom.PointerToPixel(pointer.X, pointer.Y, display, bg.Width, bg.Height)
	center := geom.Point{X: x, Y: y}
	deg := float64(s.Rotation)

	ann, err := annotate.Synthesize(obj, center, deg, bg, s.IDs.Peek(), opts)
	if err != nil {
		return s, false
	}

	return Apply(s, AppendPlacement{placement.Placement{
		Object:     obj,
		Center:     center,
		Angle:      deg,
		Annotation: ann,
	}}), true
}
