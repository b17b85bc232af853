package extract

import (
	"context"
	"encoding/json"
	"os"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

// DomainSource separates source-content fingerprints from IR and artifact ones.
const DomainSource = "bridgegen/source/v1"

// DefaultCacheSize bounds the number of unit IRs kept between regenerations.
const DefaultCacheSize = 64

// Cache memoises unit IR by the content of the unit's source files. Entries
// are cloned on the way in and out because normalization rewrites IR in place.
type Cache struct {
	entries *lru.Cache[string, *ir.IR]
}

// NewCache creates a cache holding up to size IRs.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *ir.IR](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create IR cache")
	}
	return &Cache{entries: entries}, nil
}

// Get returns a copy of the IR cached under key.
func (c *Cache) Get(key string) (*ir.IR, bool) {
	m, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Add stores a copy of m under key.
func (c *Cache) Add(key string, m *ir.IR) {
	c.entries.Add(key, m.Clone())
}

// Len is the number of cached IRs.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Package is extract.Package behind the cache.
func (c *Cache) Package(ctx context.Context, src Source) (*ir.IR, error) {
	files, err := PackageFiles(ctx, src)
	if err != nil {
		return nil, errors.WithUnit(err, src.Unit)
	}
	key, err := Key(src, files)
	if err != nil {
		return nil, errors.WithUnit(err, src.Unit)
	}
	if m, ok := c.Get(key); ok {
		return m, nil
	}
	m, err := Package(ctx, src)
	if err != nil {
		return nil, err
	}
	c.Add(key, m)
	return m, nil
}

// Key fingerprints the unit settings together with the content of files.
func Key(src Source, files []string) (string, error) {
	settings, err := json.Marshal(src)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode unit settings")
	}
	data := append(settings, 0x00)
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", errors.IO(path, err)
		}
		data = append(data, path...)
		data = append(data, 0x00)
		data = append(data, content...)
		data = append(data, 0x00)
	}
	return ir.Fingerprint(DomainSource, data), nil
}
