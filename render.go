package main

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/model-collapse/aug-editor/editor"
)

// boxesOnCurrentBackground lists the bounding boxes and category names of the
// placements on the selected background.
func boxesOnCurrentBackground(s editor.State) (bboxes []image.Rectangle, names []string) {
	bg := s.CurrentBackground()
	if bg == nil {
		return
	}

	for p := range s.Placements.ByBackground(bg.ID) {
		b := p.Annotation.BBox
		bbox := image.Rect(int(b[0]), int(b[1]), int(b[0]+b[2]), int(b[1]+b[3]))
		bboxes = append(bboxes, bbox)
		names = append(names, s.Scene.CategoryName(p.Annotation.CategoryID))
	}

	return
}

func drawBoundingBoxOnImage(img *gocv.Mat, bboxes []image.Rectangle, names []string) {
	red := color.RGBA{0xe7, 0x4c, 0x3c, 0}
	for i, bbox := range bboxes {
		gocv.Rectangle(img, bbox, red, 2)
		if names[i] != "" {
			gocv.PutText(img, names[i], image.Point{X: bbox.Min.X, Y: bbox.Min.Y - 5}, gocv.FontHersheySimplex, 0.5, red, 1)
		}
	}
}
