package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Listen        string  `json:"listen" toml:"listen"`
	SampleURL     string  `json:"sample_url" toml:"sample_url"`
	JPEGQuality   int     `json:"jpeg_quality" toml:"jpeg_quality"`
	PreviewAlpha  float64 `json:"preview_alpha" toml:"preview_alpha"`
	MaskCacheSize int     `json:"mask_cache_size" toml:"mask_cache_size"`
	ExportWorkers int     `json:"export_workers" toml:"export_workers"`
	DecodeWorkers int     `json:"decode_workers" toml:"decode_workers"`
	// RotateSegmentation makes synthesized polygons follow the rendered
	// rotation instead of only being translated.
	RotateSegmentation bool `json:"rotate_segmentation" toml:"rotate_segmentation"`
}

var GConf Config

func defaultConfig() Config {
	return Config{
		Listen:        "0.0.0.0:8093",
		SampleURL:     "http://127.0.0.1:8080/tiny_coco",
		JPEGQuality:   90,
		PreviewAlpha:  0.7,
		MaskCacheSize: 256,
		ExportWorkers: 10,
		DecodeWorkers: 10,
	}
}

// LoadConfig reads a .json or .toml config file into GConf. Fields left out
// keep their defaults; a missing file means all defaults.
func LoadConfig(path string) (err error) {
	GConf = defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("no config at %s, using defaults", path)
		return nil
	}
	if err != nil {
		return
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &GConf)
	} else {
		err = json.Unmarshal(data, &GConf)
	}

	return
}
