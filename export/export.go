// Package export renders every background with its placements and packs the
// result, together with the merged dataset document, into a new archive.
package export

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/imgio"
	"github.com/model-collapse/aug-editor/placement"
	"github.com/model-collapse/aug-editor/render"
	"github.com/model-collapse/aug-editor/scene"
)

var ErrNoDataset = errors.New("no dataset loaded")

type Options struct {
	Workers     int
	JPEGQuality int
}

type job struct {
	name string
	img  *image.RGBA
}

type result struct {
	name string
	data []byte
	err  error
}

// Run builds the export archive. Backgrounds are rendered one after another
// and encoded on opts.Workers goroutines. Any failure aborts the whole export.
func Run(s *scene.Scene, store placement.Store, opts Options) ([]byte, error) {
	if s == nil || s.Dataset == nil {
		return nil, ErrNoDataset
	}

	merged, err := s.Dataset.Merge(store.Annotations())
	if err != nil {
		return nil, err
	}

	doc, err := merged.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}

	images, err := renderAll(s, store, opts)
	if err != nil {
		return nil, err
	}

	data, err := archive.Write(doc, images)
	if err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	log.Printf("exported %d images, %d new annotations, %s", len(images), store.Len(), humanize.Bytes(uint64(len(data))))
	return data, nil
}

func renderAll(s *scene.Scene, store placement.Store, opts Options) (map[string][]byte, error) {
	n := opts.Workers
	if n <= 0 {
		n = 1
	}

	chJob := make(chan job, n)
	go func() {
		for _, bg := range s.Backgrounds {
			chJob <- job{bg.FileName, render.Export(s, bg, store)}
		}

		close(chJob)
	}()

	chRes := make(chan result, len(s.Backgrounds))
	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for j := range chJob {
				data, err := imgio.Encode(j.img, j.name, opts.JPEGQuality)
				chRes <- result{j.name, data, err}
			}
		}()
	}

	wg.Wait()
	close(chRes)

	images := make(map[string][]byte, len(s.Backgrounds))
	for r := range chRes {
		if r.err != nil {
			return nil, fmt.Errorf("export %s: %w", r.name, r.err)
		}
		images[r.name] = r.data
	}

	return images, nil
}
