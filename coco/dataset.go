// Package coco holds the detection dataset document: images, annotations and
// categories as they appear in an annotations.json file.
package coco

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jinzhu/copier"
)

type Image struct {
	ID       int64  `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileName string `json:"file_name"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Segmentation is either a list of flat polygons or an RLE object. RLE payloads
// are kept as compact raw JSON so they survive a load/export round trip.
type Segmentation struct {
	Polygons [][]float64
	RLE      json.RawMessage
}

func (s Segmentation) MarshalJSON() ([]byte, error) {
	if len(s.RLE) > 0 {
		return s.RLE, nil
	}
	if s.Polygons == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Polygons)
}

func (s *Segmentation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		return nil
	case data[0] == '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		s.RLE = buf.Bytes()
		return nil
	}

	return json.Unmarshal(data, &s.Polygons)
}

type Annotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int64        `json:"category_id"`
	Segmentation Segmentation `json:"segmentation"`
	Area         float64      `json:"area"`
	BBox         [4]float64   `json:"bbox"`
	IsCrowd      int          `json:"iscrowd"`
}

// Dataset is the typed view of a document. Documents read by Parse keep
// every record as read; Encode re-emits those untouched and only encodes
// what Merge appended.
type Dataset struct {
	Info        json.RawMessage `json:"info,omitempty"`
	Images      []Image         `json:"images"`
	Annotations []Annotation    `json:"annotations"`
	Categories  []Category      `json:"categories"`

	doc     map[string]json.RawMessage
	rawAnns []json.RawMessage
	added   []Annotation
}

func Parse(data []byte) (*Dataset, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	if doc == nil {
		return nil, fmt.Errorf("parse dataset: empty document")
	}

	ret := &Dataset{Info: doc["info"], doc: doc}

	var err error
	if ret.Images, _, err = decodeRecords[Image](doc["images"], "image"); err != nil {
		return nil, err
	}
	if ret.Annotations, ret.rawAnns, err = decodeRecords[Annotation](doc["annotations"], "annotation"); err != nil {
		return nil, err
	}
	if ret.Categories, _, err = decodeRecords[Category](doc["categories"], "category"); err != nil {
		return nil, err
	}

	return ret, nil
}

// decodeRecords splits a JSON array into raw records and decodes each one.
// Records that do not fit T stay out of the typed view but are still returned raw.
func decodeRecords[T any](data json.RawMessage, kind string) (typed []T, raw []json.RawMessage, err error) {
	if len(data) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil, nil
	}

	if err = json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse dataset %s list: %w", kind, err)
	}

	typed = make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			log.Printf("Warn [dataset] skip %s #%d: %v", kind, i, err)
			continue
		}
		typed = append(typed, v)
	}

	return typed, raw, nil
}

// Merge returns a copy of d with extra appended after the original annotations.
// d is left untouched.
func (d *Dataset) Merge(extra []Annotation) (ret *Dataset, err error) {
	ret = &Dataset{}
	if err = copier.Copy(ret, d); err != nil {
		return nil, fmt.Errorf("copy dataset: %w", err)
	}

	ret.Annotations = make([]Annotation, 0, len(d.Annotations)+len(extra))
	ret.Annotations = append(ret.Annotations, d.Annotations...)
	ret.Annotations = append(ret.Annotations, extra...)

	ret.doc, ret.rawAnns = d.doc, d.rawAnns
	ret.added = append(d.added[:len(d.added):len(d.added)], extra...)
	return
}

func (d *Dataset) Encode() ([]byte, error) {
	if d.doc == nil {
		return json.MarshalIndent(d, "", "  ")
	}

	out := make(map[string]json.RawMessage, len(d.doc)+1)
	for k, v := range d.doc {
		out[k] = v
	}

	if len(d.added) > 0 {
		anns := make([]json.RawMessage, 0, len(d.rawAnns)+len(d.added))
		anns = append(anns, d.rawAnns...)
		for _, a := range d.added {
			b, err := json.Marshal(a)
			if err != nil {
				return nil, fmt.Errorf("encode annotation %d: %w", a.ID, err)
			}
			anns = append(anns, b)
		}

		b, err := json.Marshal(anns)
		if err != nil {
			return nil, fmt.Errorf("encode annotations: %w", err)
		}
		out["annotations"] = b
	}

	return json.MarshalIndent(out, "", "  ")
}

// MaxAnnotationID returns the largest annotation id, or 0 for none.
func (d *Dataset) MaxAnnotationID() (m int64) {
	for _, a := range d.Annotations {
		if a.ID > m {
			m = a.ID
		}
	}

	return
}

func (d *Dataset) Category(id int64) (Category, bool) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, true
		}
	}

	return Category{}, false
}

func BuildFileNameIndex(imgs []Image) (ret map[int64]string) {
	ret = make(map[int64]string)
	for _, img := range imgs {
		ret[img.ID] = img.FileName
	}

	return
}

func BuildImageIndex(imgs []Image) (ret map[int64]*Image) {
	ret = make(map[int64]*Image, len(imgs))
	for i := range imgs {
		ret[imgs[i].ID] = &imgs[i]
	}

	return
}
