package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	http "github.com/valyala/fasthttp"

	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/geom"
)

const doc = `{
  "info": {"year": 2024, "version": "1", "description": "", "contributor": "", "url": "", "date_created": ""},
  "licenses": [],
  "images": [
    {"id": 1, "width": 400, "height": 300, "file_name": "bg.png"},
    {"id": 2, "width": 100, "height": 100, "file_name": "src.png"}
  ],
  "annotations": [
    {"id": 3, "image_id": 2, "category_id": 5, "segmentation": [[10,10,60,10,60,60,10,60]], "area": 2500, "bbox": [10,10,50,50], "iscrowd": 0},
    {"id": 7, "image_id": 2, "category_id": 5, "segmentation": {"counts": "x", "size": [100, 100]}, "area": 4, "bbox": [0,0,2,2], "iscrowd": 1},
    {"id": 9, "image_id": 1, "category_id": 6, "segmentation": [[0,0,4,0,4,4]], "area": 8, "bbox": [0,0,4,4], "iscrowd": 0}
  ],
  "categories": [{"id": 5, "name": "cup", "supercategory": "kitchen"}, {"id": 6, "name": "fork", "supercategory": "kitchen"}]
}`

func pngOf(t *testing.T, w, h int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func datasetZip(t *testing.T) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string][]byte{
		"set/annotations.json": []byte(doc),
		"set/images/bg.png":    pngOf(t, 400, 300, color.RGBA{0, 0, 0xff, 0xff}),
		"set/images/src.png":   pngOf(t, 100, 100, color.RGBA{0xff, 0, 0, 0xff}),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func do(s *Server, method, uri string, body []byte) *http.RequestCtx {
	var c http.RequestCtx
	c.Request.Header.SetMethod(method)
	c.Request.SetRequestURI(uri)
	c.Request.SetBody(body)
	s.Handle(&c)
	return &c
}

func state(t *testing.T, s *Server) (ret Summary) {
	c := do(s, "GET", "/state", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	require.NoError(t, json.Unmarshal(c.Response.Body(), &ret))
	return
}

func newServer() *Server {
	conf := defaultConfig()
	conf.ExportWorkers = 2
	conf.DecodeWorkers = 2
	return NewServer(conf)
}

func TestSessionFlow(t *testing.T) {
	s := newServer()

	c := do(s, "POST", "/dataset", datasetZip(t))
	require.Equal(t, http.StatusOK, c.Response.StatusCode(), string(c.Response.Body()))

	st := state(t, s)
	assert.True(t, st.Loaded)
	assert.Equal(t, int64(10), st.NextAnnotationID)
	assert.Equal(t, int64(5), *st.Category)
	assert.Equal(t, "obj_3", st.ForegroundID)
	assert.Equal(t, 1, st.Foregrounds)
	assert.Equal(t, 2, st.Backgrounds)

	c = do(s, "POST", "/click?x=200&y=150", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	var ann coco.Annotation
	require.NoError(t, json.Unmarshal(c.Response.Body(), &ann))
	assert.Equal(t, int64(10), ann.ID)
	assert.Equal(t, int64(1), ann.ImageID)
	assert.Equal(t, [4]float64{175, 125, 50, 50}, ann.BBox)

	do(s, "POST", "/rotate?dir=cw", nil)
	do(s, "POST", "/rotate?dir=cw&repeat=true", nil)
	assert.Equal(t, 15, state(t, s).Rotation)
	do(s, "POST", "/rotate?dir=ccw", nil)
	do(s, "POST", "/rotate?dir=ccw", nil)
	assert.Equal(t, 345, state(t, s).Rotation)

	c = do(s, "POST", "/rotate?dir=up", nil)
	assert.Equal(t, http.StatusBadRequest, c.Response.StatusCode())

	do(s, "POST", "/pointer?x=100&y=75&w=200&h=150&hover=true", nil)
	c = do(s, "POST", "/click", nil)
	require.NoError(t, json.Unmarshal(c.Response.Body(), &ann))
	assert.Equal(t, int64(11), ann.ID)
	assert.InDelta(t, 200, ann.BBox[0]+ann.BBox[2]/2, 1e-9)
	assert.InDelta(t, 150, ann.BBox[1]+ann.BBox[3]/2, 1e-9)

	c = do(s, "GET", "/frame?box=true", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	assert.Equal(t, "image/jpeg", string(c.Response.Header.ContentType()))

	c = do(s, "GET", "/foreground.png?size=64", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	assert.Equal(t, "image/png", string(c.Response.Header.ContentType()))

	c = do(s, "GET", "/export", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	b, err := archive.Read(c.Response.Body())
	require.NoError(t, err)
	d, err := coco.Parse(b.Annotations)
	require.NoError(t, err)
	require.Len(t, d.Annotations, 5)
	assert.Equal(t, int64(10), d.Annotations[3].ID)
	assert.Equal(t, int64(11), d.Annotations[4].ID)
	assert.Len(t, b.Images, 2)
}

func TestSelect(t *testing.T) {
	s := newServer()
	do(s, "POST", "/dataset", datasetZip(t))

	c := do(s, "POST", "/select?category=6&background=next", nil)
	require.Equal(t, http.StatusOK, c.Response.StatusCode())

	var st Summary
	require.NoError(t, json.Unmarshal(c.Response.Body(), &st))
	assert.Equal(t, int64(6), *st.Category)
	assert.Equal(t, 1, st.Background)
	assert.Equal(t, int64(2), *st.BackgroundID)
	assert.Equal(t, "obj_9", st.ForegroundID)

	c = do(s, "POST", "/select?background=prev&foreground=3", nil)
	require.NoError(t, json.Unmarshal(c.Response.Body(), &st))
	assert.Equal(t, 0, st.Background)
	assert.Equal(t, 0, st.Foreground)

	c = do(s, "POST", "/select?category=abc", nil)
	assert.Equal(t, http.StatusBadRequest, c.Response.StatusCode())
}

func TestClickWithoutDatasetIsNoop(t *testing.T) {
	s := newServer()

	c := do(s, "POST", "/click?x=1&y=1", nil)
	assert.Equal(t, http.StatusNoContent, c.Response.StatusCode())
	assert.Empty(t, state(t, s).NewAnnotations)

	c = do(s, "GET", "/frame", nil)
	assert.Equal(t, http.StatusNotFound, c.Response.StatusCode())

	c = do(s, "GET", "/export", nil)
	assert.Equal(t, http.StatusInternalServerError, c.Response.StatusCode())
}

func TestBadUploadKeepsSession(t *testing.T) {
	s := newServer()
	do(s, "POST", "/dataset", datasetZip(t))
	do(s, "POST", "/click?x=200&y=150", nil)

	c := do(s, "POST", "/dataset", []byte("not a zip"))
	assert.Equal(t, http.StatusBadRequest, c.Response.StatusCode())

	st := state(t, s)
	assert.True(t, st.Loaded)
	assert.Len(t, st.NewAnnotations, 1)

	do(s, "DELETE", "/dataset", nil)
	assert.False(t, state(t, s).Loaded)
}

func TestClickCoordinatesMovePointer(t *testing.T) {
	s := newServer()
	do(s, "POST", "/dataset", datasetZip(t))

	var first, second coco.Annotation
	c := do(s, "POST", "/click?x=120&y=90", nil)
	require.NoError(t, json.Unmarshal(c.Response.Body(), &first))
	assert.Equal(t, geom.Point{X: 120, Y: 90}, s.pointer)

	c = do(s, "POST", "/click", nil)
	require.NoError(t, json.Unmarshal(c.Response.Body(), &second))
	assert.Equal(t, first.BBox, second.BBox)
	assert.Equal(t, first.ID+1, second.ID)
}

func TestLoadForgetsPointer(t *testing.T) {
	s := newServer()
	do(s, "POST", "/dataset", datasetZip(t))
	do(s, "POST", "/pointer?x=100&y=75&w=200&h=150&hover=true", nil)
	require.True(t, s.hovering)

	c := do(s, "POST", "/dataset", datasetZip(t))
	require.Equal(t, http.StatusOK, c.Response.StatusCode())
	assert.False(t, s.hovering)
	assert.Equal(t, geom.Point{}, s.pointer)
	assert.Equal(t, geom.Rect{}, s.display)

	do(s, "POST", "/pointer?x=10&y=10&hover=true", nil)
	do(s, "DELETE", "/dataset", nil)
	assert.False(t, s.hovering)
}

func TestNotFound(t *testing.T) {
	c := do(newServer(), "GET", "/nope", nil)
	assert.Equal(t, http.StatusNotFound, c.Response.StatusCode())
}
