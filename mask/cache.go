package mask

import (
	"image"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes mask buffers per object id. A mask only depends on the
// object, never on where or how it is placed. The zero value and a nil
// *Cache build every time.
type Cache struct {
	lru *lru.Cache[string, *image.RGBA]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return &Cache{}, nil
	}

	l, err := lru.New[string, *image.RGBA](size)
	if err != nil {
		return nil, err
	}

	return &Cache{lru: l}, nil
}

// Get returns the mask for id, building it from src, bbox and polys on a miss.
// Callers must not modify the returned buffer.
func (c *Cache) Get(id string, src image.Image, bbox [4]float64, polys [][]float64) *image.RGBA {
	if c == nil || c.lru == nil {
		return Build(src, bbox, polys)
	}

	if m, ok := c.lru.Get(id); ok {
		return m
	}

	m := Build(src, bbox, polys)
	c.lru.Add(id, m)
	return m
}

func (c *Cache) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}

	return c.lru.Len()
}
