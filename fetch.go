package main

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	http "github.com/valyala/fasthttp"

	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/coco"
)

const (
	sampleAnnotations = "/annotations/instances_train2017.json"
	sampleImages      = "/train2017/"
)

func fetch(u string) ([]byte, error) {
	status, body, err := http.Get(nil, u)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, status)
	}

	return body, nil
}

// fetchSample downloads the bundled sample dataset into the same shape an
// uploaded archive has. Images that cannot be fetched are skipped.
func fetchSample(base string) (*archive.Bundle, error) {
	base = strings.TrimRight(base, "/")

	doc, err := fetch(base + sampleAnnotations)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample dataset annotations: %w", err)
	}

	d, err := coco.Parse(doc)
	if err != nil {
		return nil, err
	}

	b := &archive.Bundle{Annotations: doc, Images: make(map[string][]byte)}
	for _, img := range d.Images {
		data, err := fetch(base + sampleImages + url.PathEscape(img.FileName))
		if err != nil {
			log.Printf("Err [fetch] %s: %v", img.FileName, err)
			continue
		}
		b.Images[img.FileName] = data
	}

	return b, nil
}
