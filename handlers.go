package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	http "github.com/valyala/fasthttp"

	"github.com/model-collapse/aug-editor/annotate"
	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/coco"
	"github.com/model-collapse/aug-editor/editor"
	"github.com/model-collapse/aug-editor/export"
	"github.com/model-collapse/aug-editor/geom"
	"github.com/model-collapse/aug-editor/imgio"
	"github.com/model-collapse/aug-editor/mask"
	"github.com/model-collapse/aug-editor/render"
	"github.com/model-collapse/aug-editor/scene"
)

const exportName = "updated-coco-dataset.zip"

// Server holds the single editing session. Requests are applied one at a
// time, the way a browser delivers input events.
type Server struct {
	conf Config

	mu    sync.Mutex
	state editor.State

	pointer  geom.Point
	display  geom.Rect
	hovering bool
}

func NewServer(conf Config) *Server {
	return &Server{conf: conf}
}

func (s *Server) Handle(c *http.RequestCtx) {
	path := string(c.Path())
	log.Printf("%s %s", c.Method(), path)

	switch {
	case path == "/dataset" && c.IsPost():
		s.handleUpload(c)
	case path == "/dataset/sample" && c.IsPost():
		s.handleSample(c)
	case path == "/dataset" && c.IsDelete():
		s.handleClear(c)
	case path == "/pointer" && c.IsPost():
		s.handlePointer(c)
	case path == "/rotate" && c.IsPost():
		s.handleRotate(c)
	case path == "/select" && c.IsPost():
		s.handleSelect(c)
	case path == "/click" && c.IsPost():
		s.handleClick(c)
	case path == "/frame" && c.IsGet():
		s.handleFrame(c)
	case path == "/foreground.png" && c.IsGet():
		s.handleForeground(c)
	case path == "/state" && c.IsGet():
		s.handleState(c)
	case path == "/export" && c.IsGet():
		s.handleExport(c)
	default:
		c.Error("not found", http.StatusNotFound)
	}
}

func (s *Server) annotateOptions() annotate.Options {
	return annotate.Options{RotateSegmentation: s.conf.RotateSegmentation}
}

// load builds the new scene outside the lock and only swaps it in once every
// image is decoded. A failed load leaves the current session alone.
func (s *Server) load(c *http.RequestCtx, b *archive.Bundle) {
	masks, err := mask.NewCache(s.conf.MaskCacheSize)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	sc, err := scene.Load(b, s.conf.DecodeWorkers, masks)
	if err != nil {
		log.Printf("Err [load] %v", err)
		c.Error("Error loading dataset: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.state = editor.Apply(s.state, editor.Load{Scene: sc})
	s.resetPointer()
	s.mu.Unlock()

	s.handleState(c)
}

func (s *Server) handleUpload(c *http.RequestCtx) {
	b, err := archive.Read(c.PostBody())
	if err != nil {
		log.Printf("Err [upload] %v", err)
		c.Error("Error loading dataset: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.load(c, b)
}

func (s *Server) handleSample(c *http.RequestCtx) {
	b, err := fetchSample(s.conf.SampleURL)
	if err != nil {
		log.Printf("Err [sample] %v", err)
		c.Error("Error loading local dataset: "+err.Error(), http.StatusBadGateway)
		return
	}

	s.load(c, b)
}

// resetPointer forgets where the pointer was on the previous scene.
func (s *Server) resetPointer() {
	s.pointer, s.display, s.hovering = geom.Point{}, geom.Rect{}, false
}

func (s *Server) handleClear(c *http.RequestCtx) {
	s.mu.Lock()
	s.state = editor.Apply(s.state, editor.Clear{})
	s.resetPointer()
	s.mu.Unlock()

	c.SetStatusCode(http.StatusNoContent)
}

func (s *Server) handlePointer(c *http.RequestCtx) {
	args := c.QueryArgs()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pointer = geom.Point{X: floatArg(args, "x"), Y: floatArg(args, "y")}
	s.display = geom.Rect{
		X:      floatArg(args, "left"),
		Y:      floatArg(args, "top"),
		Width:  floatArg(args, "w"),
		Height: floatArg(args, "h"),
	}
	if args.Has("hover") {
		s.hovering = args.GetBool("hover")
	}

	c.SetStatusCode(http.StatusNoContent)
}

func (s *Server) handleRotate(c *http.RequestCtx) {
	args := c.QueryArgs()

	var steps int
	switch string(args.Peek("dir")) {
	case "cw", "f":
		steps = 1
	case "ccw", "d":
		steps = -1
	default:
		c.Error("dir must be cw or ccw", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.state = editor.Apply(s.state, editor.Rotate{Steps: steps, Repeat: args.GetBool("repeat")})
	s.mu.Unlock()

	s.handleState(c)
}

// indexArg resolves "next", "prev" or an absolute index against cur.
func indexArg(v string, cur int) (int, error) {
	switch v {
	case "next":
		return cur + 1, nil
	case "prev":
		return cur - 1, nil
	}

	return strconv.Atoi(v)
}

func (s *Server) handleSelect(c *http.RequestCtx) {
	args := c.QueryArgs()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	if v := args.Peek("category"); v != nil {
		id, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			c.Error("bad category: "+err.Error(), http.StatusBadRequest)
			return
		}
		next = editor.Apply(next, editor.SelectCategory{ID: id})
	}

	if v := args.Peek("background"); v != nil {
		i, err := indexArg(string(v), next.Background)
		if err != nil {
			c.Error("bad background: "+err.Error(), http.StatusBadRequest)
			return
		}
		next = editor.Apply(next, editor.SelectBackground{Index: i})
	}

	if v := args.Peek("foreground"); v != nil {
		i, err := indexArg(string(v), next.Foreground)
		if err != nil {
			c.Error("bad foreground: "+err.Error(), http.StatusBadRequest)
			return
		}
		next = editor.Apply(next, editor.SelectForeground{Index: i})
	}

	s.state = next
	s.writeState(c)
}

func (s *Server) handleClick(c *http.RequestCtx) {
	args := c.QueryArgs()

	s.mu.Lock()
	defer s.mu.Unlock()

	if args.Has("x") && args.Has("y") {
		s.pointer = geom.Point{X: floatArg(args, "x"), Y: floatArg(args, "y")}
	}

	next, ok := editor.Place(s.state, s.pointer, s.display, s.annotateOptions())
	if !ok {
		c.SetStatusCode(http.StatusNoContent)
		return
	}

	s.state = next
	p := next.Placements.At(next.Placements.Len() - 1)
	writeJSON(c, p.Annotation)
}

func (s *Server) handleFrame(c *http.RequestCtx) {
	s.mu.Lock()
	st := s.state
	v := render.View{
		Pointer:  s.pointer,
		Hovering: s.hovering,
		Object:   st.CurrentObject(),
		Angle:    float64(st.Rotation),
	}
	if bg := st.CurrentBackground(); bg != nil {
		v.Pointer.X, v.Pointer.Y = geom.PointerToPixel(s.pointer.X, s.pointer.Y, s.display, bg.Width, bg.Height)
	}
	s.mu.Unlock()

	bg := st.CurrentBackground()
	if bg == nil {
		c.Error("No background image available", http.StatusNotFound)
		return
	}

	img := render.Frame(st.Scene, bg, st.Placements, v, render.Options{PreviewAlpha: s.conf.PreviewAlpha})

	mat, err := imgio.ToMat(img, ".jpg")
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	defer mat.Close()

	if c.QueryArgs().GetBool("box") {
		bboxes, names := boxesOnCurrentBackground(st)
		drawBoundingBoxOnImage(&mat, bboxes, names)
	}

	data, err := imgio.EncodeMat(mat, ".jpg", s.conf.JPEGQuality)
	if err != nil {
		log.Printf("Err [encode] %v", err)
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("image/jpeg")
	c.Write(data)
}

func (s *Server) handleForeground(c *http.RequestCtx) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	obj := st.CurrentObject()
	if obj == nil {
		c.Error("No object selected", http.StatusNotFound)
		return
	}

	size := c.QueryArgs().GetUintOrZero("size")
	data, err := imgio.Encode(render.Thumbnail(st.Scene, obj, float64(st.Rotation), size), ".png", 0)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("image/png")
	c.Write(data)
}

// Summary is the JSON view of the session.
type Summary struct {
	Loaded           bool              `json:"loaded"`
	Rotation         int               `json:"rotation"`
	Category         *int64            `json:"category"`
	Background       int               `json:"background"`
	BackgroundID     *int64            `json:"background_id"`
	Backgrounds      int               `json:"backgrounds"`
	Foreground       int               `json:"foreground"`
	ForegroundID     string            `json:"foreground_id,omitempty"`
	Foregrounds      int               `json:"foregrounds"`
	NextAnnotationID int64             `json:"next_annotation_id"`
	Categories       []coco.Category   `json:"categories"`
	NewAnnotations   []coco.Annotation `json:"new_annotations"`
}

func summarize(st editor.State) (ret Summary) {
	ret = Summary{
		Loaded:           st.Scene != nil,
		Rotation:         int(st.Rotation),
		Background:       st.Background,
		Backgrounds:      len(st.Scene.Images()),
		Foreground:       st.Foreground,
		Foregrounds:      len(st.Objects()),
		NextAnnotationID: st.IDs.Peek(),
		Categories:       st.Scene.Categories(),
		NewAnnotations:   st.Placements.Annotations(),
	}

	if st.HasCategory {
		id := st.Category
		ret.Category = &id
	}
	if bg := st.CurrentBackground(); bg != nil {
		id := bg.ID
		ret.BackgroundID = &id
	}
	if o := st.CurrentObject(); o != nil {
		ret.ForegroundID = o.ID
	}

	return
}

func (s *Server) handleState(c *http.RequestCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeState(c)
}

func (s *Server) writeState(c *http.RequestCtx) {
	writeJSON(c, summarize(s.state))
}

func (s *Server) handleExport(c *http.RequestCtx) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	data, err := export.Run(st.Scene, st.Placements, export.Options{
		Workers:     s.conf.ExportWorkers,
		JPEGQuality: s.conf.JPEGQuality,
	})
	if err != nil {
		log.Printf("Err [export] %v", err)
		c.Error("Error exporting dataset: "+err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("application/zip")
	c.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName))
	c.Write(data)
}

func writeJSON(c *http.RequestCtx, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}

	c.SetContentType("application/json")
	c.Write(data)
}

func floatArg(args *http.Args, key string) float64 {
	f, err := strconv.ParseFloat(string(args.Peek(key)), 64)
	if err != nil {
		return 0
	}

	return f
}
