// Package imgio turns image bytes into drawable surfaces and back.
package imgio

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"path"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

const DefaultJPEGQuality = 90

// Decode returns the decoded image as an RGBA surface, honoring EXIF orientation.
func Decode(data []byte) (*image.RGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	return clone.AsRGBA(img), nil
}

// DecodeAll decodes every entry of files on n workers and waits for all of
// them. Entries that fail to decode are logged and left out.
func DecodeAll(files map[string][]byte, n int) map[string]*image.RGBA {
	if n <= 0 {
		n = 1
	}

	type result struct {
		name string
		img  *image.RGBA
	}

	chName := make(chan string, len(files))
	for name := range files {
		chName <- name
	}
	close(chName)

	chRes := make(chan result, len(files))
	wg := sync.WaitGroup{}
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			for name := range chName {
				img, err := Decode(files[name])
				if err != nil {
					log.Printf("Err [decode] %s: %v", name, err)
					continue
				}
				chRes <- result{name, img}
			}
		}()
	}

	wg.Wait()
	close(chRes)

	ret := make(map[string]*image.RGBA, len(files))
	for r := range chRes {
		ret[r.name] = r.img
	}

	return ret
}

func isPNG(fileName string) bool {
	return strings.EqualFold(path.Ext(fileName), ".png")
}

// ToMat converts img to a Mat suited to fileName's format: BGRA for png,
// BGR otherwise. The caller owns the Mat.
func ToMat(img image.Image, fileName string) (gocv.Mat, error) {
	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, nrgba.Pix)
	if err != nil {
		return src, err
	}
	defer src.Close()

	code := gocv.ColorRGBAToBGR
	if isPNG(fileName) {
		code = gocv.ColorRGBAToBGRA
	}

	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, code)
	return dst, nil
}

// EncodeMat encodes mat as png when fileName ends in .png and as jpeg otherwise.
func EncodeMat(mat gocv.Mat, fileName string, quality int) ([]byte, error) {
	if isPNG(fileName) {
		return gocv.IMEncode(gocv.PNGFileExt, mat)
	}

	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	return gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
}

func Encode(img image.Image, fileName string, quality int) ([]byte, error) {
	mat, err := ToMat(img, fileName)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", fileName, err)
	}
	defer mat.Close()

	data, err := EncodeMat(mat, fileName, quality)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", fileName, err)
	}

	return data, nil
}

func ContentType(fileName string) string {
	if isPNG(fileName) {
		return "image/png"
	}

	return "image/jpeg"
}
