// Package scene holds everything loaded from one dataset: the document, the
// decoded background surfaces and the foreground objects cut from them.
package scene

import (
	"fmt"
	"image"
	"log"

	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/imgio"
	"github.com/model-collapse/aug-editor/mask"
)

type Background struct {
	ID       int64
	FileName string
	Width    int
	Height   int
	Surface  *image.RGBA
}

// Object is one extractable instance. Source is the full image the object
// was annotated on, shared with every other object of that image.
type Object struct {
	ID         string
	CategoryID int64
	Source     *image.RGBA
	BBox       [4]float64
	Polygons   [][]float64
	Area       float64
	Annotation *coco.Annotation
}

type Scene struct {
	Dataset     *coco.Dataset
	Backgrounds []*Background
	Objects     map[int64][]*Object

	byID  map[int64]*Background
	masks *mask.Cache
}

// Load parses the bundle's dataset document, decodes every image and extracts
// the foreground objects. Only a missing or broken document fails the load.
func Load(b *archive.Bundle, decodeWorkers int, masks *mask.Cache) (ret *Scene, err error) {
	if b == nil || b.Annotations == nil {
		return nil, archive.ErrNoAnnotations
	}

	d, err := coco.Parse(b.Annotations)
	if err != nil {
		return nil, err
	}

	surfaces := imgio.DecodeAll(b.Images, decodeWorkers)
	ret = New(d, surfaces, masks)

	log.Printf("#backgrounds = %d, #images = %d", len(ret.Backgrounds), len(d.Images))
	log.Printf("#objects = %d, #annotations = %d", ret.NumObjects(), len(d.Annotations))
	return
}

// New builds a scene from an already decoded set of surfaces keyed by file name.
func New(d *coco.Dataset, surfaces map[string]*image.RGBA, masks *mask.Cache) *Scene {
	s := &Scene{
		Dataset: d,
		Objects: make(map[int64][]*Object),
		byID:    make(map[int64]*Background),
		masks:   masks,
	}

	for _, img := range d.Images {
		surf, ok := surfaces[img.FileName]
		if !ok {
			continue
		}

		bg := &Background{
			ID:       img.ID,
			FileName: img.FileName,
			Width:    surf.Bounds().Dx(),
			Height:   surf.Bounds().Dy(),
			Surface:  surf,
		}
		s.Backgrounds = append(s.Backgrounds, bg)
		s.byID[img.ID] = bg
	}

	for i := range d.Annotations {
		a := &d.Annotations[i]
		if a.IsCrowd == 1 {
			continue
		}

		bg, ok := s.byID[a.ImageID]
		if !ok {
			continue
		}

		s.Objects[a.CategoryID] = append(s.Objects[a.CategoryID], &Object{
			ID:         fmt.Sprintf("obj_%d", a.ID),
			CategoryID: a.CategoryID,
			Source:     bg.Surface,
			BBox:       a.BBox,
			Polygons:   a.Segmentation.Polygons,
			Area:       a.Area,
			Annotation: a,
		})
	}

	return s
}

// Background returns the decoded background with the given image id, or nil.
func (s *Scene) Background(id int64) *Background {
	if s == nil {
		return nil
	}

	return s.byID[id]
}

func (s *Scene) Images() []coco.Image {
	if s == nil || s.Dataset == nil {
		return nil
	}

	return s.Dataset.Images
}

func (s *Scene) Categories() []coco.Category {
	if s == nil || s.Dataset == nil {
		return nil
	}

	return s.Dataset.Categories
}

func (s *Scene) CategoryName(id int64) string {
	if s == nil || s.Dataset == nil {
		return ""
	}

	c, _ := s.Dataset.Category(id)
	return c.Name
}

func (s *Scene) NumObjects() (n int) {
	for _, objs := range s.Objects {
		n += len(objs)
	}

	return
}

// Mask returns the polygon clipped pixel buffer of o. The buffer may be shared
// and must not be modified.
func (s *Scene) Mask(o *Object) *image.RGBA {
	var c *mask.Cache
	if s != nil {
		c = s.masks
	}

	return c.Get(o.ID, o.Source, o.BBox, o.Polygons)
}
