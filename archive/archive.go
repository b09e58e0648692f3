// Package archive reads dataset bundles (a zip of images plus an
// annotations.json document) and writes the updated bundle back out.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"strings"

	"github.com/h2non/filetype"
)

const (
	AnnotationsName = "annotations.json"
	ImagesDir       = "images"
)

var ErrNoAnnotations = errors.New("no annotations.json file found in the zip archive")

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

// Bundle is the content of a dataset archive. Images are keyed by base file name.
type Bundle struct {
	Annotations []byte
	Images      map[string][]byte
}

// Read extracts the dataset document and every image entry of a zip archive.
// The document is the entry whose name contains annotations.json; failing that,
// the first .json entry.
func Read(data []byte) (ret *Bundle, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	ret = &Bundle{Images: make(map[string][]byte)}
	var fallback []byte
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := strings.ToLower(f.Name)
		if strings.HasPrefix(name, "__macosx/") {
			continue
		}

		ext := path.Ext(name)
		isDoc := strings.Contains(name, AnnotationsName)
		if !isDoc && ext != ".json" && ext != "" && !imageExts[ext] {
			continue
		}

		body, err := readEntry(f)
		if err != nil {
			log.Printf("Err [archive] %s: %v", f.Name, err)
			continue
		}

		switch {
		case isDoc:
			if ret.Annotations == nil {
				ret.Annotations = body
			}
		case ext == ".json":
			if fallback == nil {
				fallback = body
			}
		case imageExts[ext] || filetype.IsImage(body):
			ret.Images[path.Base(f.Name)] = body
		}
	}

	if ret.Annotations == nil {
		ret.Annotations = fallback
	}

	if ret.Annotations == nil {
		return nil, ErrNoAnnotations
	}

	return
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Write packs the dataset document and the images into a new zip archive.
// Images are stored under images/ by file name, in name order.
func Write(doc []byte, images map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(AnnotationsName)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(doc); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(images))
	for n := range images {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		w, err := zw.Create(path.Join(ImagesDir, n))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(images[n]); err != nil {
			return nil, fmt.Errorf("write %s: %w", n, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
