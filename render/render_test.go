package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/placement"
	"github.com/model-collapse/aug-editor/scene"
)

var (
	blue = color.RGBA{0, 0, 0xff, 0xff}
	red  = color.RGBA{0xff, 0, 0, 0xff}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	return img
}

func fixture() (*scene.Scene, *scene.Background, *scene.Object) {
	bg := solid(400, 300, blue)
	src := solid(100, 100, red)

	d := &coco.Dataset{
		Images: []coco.Image{{ID: 1, FileName: "bg.png"}, {ID: 2, FileName: "src.png"}},
		Annotations: []coco.Annotation{{
			ID: 3, ImageID: 2, CategoryID: 5, BBox: [4]float64{10, 10, 50, 50},
			Segmentation: coco.Segmentation{Polygons: [][]float64{{10, 10, 60, 10, 60, 60, 10, 60}}},
		}},
	}

	s := scene.New(d, map[string]*image.RGBA{"bg.png": bg, "src.png": src}, nil)
	return s, s.Background(1), s.Objects[5][0]
}

func place(store placement.Store, o *scene.Object, imageID int64, x, y, deg float64) placement.Store {
	return store.Append(placement.Placement{
		Object:     o,
		Center:     geom.Point{X: x, Y: y},
		Angle:      deg,
		Annotation: coco.Annotation{ImageID: imageID},
	})
}

func TestExportDrawsPlacementCentered(t *testing.T) {
	s, bg, o := fixture()
	store := place(placement.Store{}, o, 1, 200, 150, 0)

	out := Export(s, bg, store)
	require.Equal(t, image.Rect(0, 0, 400, 300), out.Bounds())

	assert.Equal(t, red, out.RGBAAt(175, 125))
	assert.Equal(t, red, out.RGBAAt(224, 174))
	assert.Equal(t, blue, out.RGBAAt(174, 150))
	assert.Equal(t, blue, out.RGBAAt(225, 150))
	assert.Equal(t, blue, out.RGBAAt(200, 124))
	assert.Equal(t, blue, out.RGBAAt(200, 175))
	assert.Equal(t, blue, out.RGBAAt(0, 0))
}

func TestExportSkipsOtherBackgrounds(t *testing.T) {
	s, bg, o := fixture()
	store := place(placement.Store{}, o, 2, 200, 150, 0)

	out := Export(s, bg, store)
	assert.Equal(t, bg.Surface.Pix, out.Pix)
	assert.NotSame(t, bg.Surface, out)
}

func TestExportRotated(t *testing.T) {
	s, bg, o := fixture()
	o.BBox = [4]float64{10, 10, 40, 10}
	o.Polygons = nil
	store := place(placement.Store{}, o, 1, 200, 150, 90)

	out := Export(s, bg, store)
	// a 40x10 bar turned upright
	assert.Equal(t, red, out.RGBAAt(200, 135))
	assert.Equal(t, red, out.RGBAAt(200, 164))
	assert.Equal(t, blue, out.RGBAAt(185, 150))
	assert.Equal(t, blue, out.RGBAAt(215, 150))
}

func TestLaterPlacementsDrawOnTop(t *testing.T) {
	s, bg, o := fixture()
	green := color.RGBA{0, 0xff, 0, 0xff}
	other := &scene.Object{ID: "obj_99", Source: solid(10, 10, green), BBox: [4]float64{0, 0, 10, 10}}

	store := place(placement.Store{}, o, 1, 200, 150, 0)
	store = place(store, other, 1, 200, 150, 0)

	out := Export(s, bg, store)
	assert.Equal(t, green, out.RGBAAt(200, 150))
	assert.Equal(t, red, out.RGBAAt(190, 150))
}

func TestPreviewExportParity(t *testing.T) {
	s, bg, o := fixture()
	store := place(placement.Store{}, o, 1, 200, 150, 0)
	store = place(store, o, 1, 100, 100, 45)
	store = place(store, o, 1, 390, 5, 270)

	frame := Frame(s, bg, store, View{Pointer: geom.Point{X: 50, Y: 50}}, Options{})
	export := Export(s, bg, store)
	assert.Equal(t, export.Pix, frame.Pix)
}

func TestFramePreviewAndCrosshair(t *testing.T) {
	s, bg, o := fixture()
	v := View{Pointer: geom.Point{X: 300, Y: 100}, Hovering: true, Object: o}

	frame := Frame(s, bg, placement.Store{}, v, Options{})

	// faded red over blue
	c := frame.RGBAAt(310, 90)
	assert.Greater(t, c.R, uint8(0x80))
	assert.Less(t, c.R, uint8(0xff))
	assert.Greater(t, c.B, uint8(0))

	// crosshair runs the full width along the pointer row
	assert.NotEqual(t, blue, frame.RGBAAt(2, 100))

	plain := Frame(s, bg, placement.Store{}, View{Pointer: v.Pointer, Object: o}, Options{})
	assert.Equal(t, bg.Surface.Pix, plain.Pix)
}

func TestFrameWithoutBackground(t *testing.T) {
	s, _, _ := fixture()
	assert.Nil(t, Frame(s, nil, placement.Store{}, View{}, Options{}))
	assert.Nil(t, Export(s, nil, placement.Store{}))
}

func TestThumbnail(t *testing.T) {
	s, _, o := fixture()

	th := Thumbnail(s, o, 0, 100)
	require.Equal(t, image.Rect(0, 0, 100, 100), th.Bounds())
	assert.Equal(t, red, th.RGBAAt(50, 50))
	assert.Equal(t, red, th.RGBAAt(5, 5))

	empty := Thumbnail(s, nil, 0, 0)
	assert.Equal(t, DefaultThumbnailSize, empty.Bounds().Dx())
}
