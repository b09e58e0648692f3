package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/model-collapse/aug-editor/archive"
	"github.com/model-collapse/aug-editor/imgio"
	"github.com/model-collapse/aug-editor/scene"
)

// extractObject writes the masked crop of o to dir/<annotation id>.png.
func extractObject(sc *scene.Scene, o *scene.Object, dir string) (err error) {
	defer func() {
		if e := recover(); e != nil {
			log.Printf("Panic = %v, stack = %s", e, debug.Stack())
			err = fmt.Errorf("extract %s: %v", o.ID, e)
		}
	}()

	patch := sc.Mask(o)
	data, err := imgio.Encode(patch, ".png", 0)
	if err != nil {
		return err
	}

	fn := filepath.Join(dir, fmt.Sprintf("%d.png", o.Annotation.ID))
	return os.WriteFile(fn, data, 0o644)
}

func extractAll(sc *scene.Scene, dir string, workers int) (n int) {
	if workers <= 0 {
		workers = 1
	}

	chObj := make(chan *scene.Object, 100)
	go func() {
		for _, objs := range sc.Objects {
			for _, o := range objs {
				chObj <- o
			}
		}

		close(chObj)
	}()

	var mu sync.Mutex
	wg := sync.WaitGroup{}
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for o := range chObj {
				if err := extractObject(sc, o, dir); err != nil {
					log.Print(err)
					continue
				}
				mu.Lock()
				n++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return
}

func main() {
	in := flag.String("in", "dataset.zip", "dataset archive (images + annotations.json)")
	out := flag.String("out", "objs", "output directory")
	workers := flag.Int("workers", 10, "number of workers")
	flag.Parse()

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatal(err)
	}

	b, err := archive.Read(data)
	if err != nil {
		log.Fatal(err)
	}

	sc, err := scene.Load(b, *workers, nil)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal(err)
	}

	n := extractAll(sc, *out, *workers)
	log.Printf("#extracted = %d of %d", n, sc.NumObjects())
}
