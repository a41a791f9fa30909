// Package thumbnail renders small previews of OpenEXR files and keeps
// the most recent ones in a bounded cache.
//
// Entries are keyed by the file's path, modification time and size, so
// a file rewritten on disk is rendered again on its next request.
package thumbnail

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"

	"github.com/mrjoshuak/go-exredit/session"
)

// Options configures a Cache.
type Options struct {
	Size    int // entries kept; 0 disables caching
	MaxSize int // longest thumbnail side in pixels
	Logger  *slog.Logger
}

// Request selects what to render.
type Request struct {
	Part      int
	Selection string // channel or layer name; "" picks the first layer
	Params    session.PreviewParams
}

type key struct {
	path      string
	modTime   int64 // UnixNano
	size      int64
	maxSize   int
	part      int
	selection string
	params    session.PreviewParams
}

// Stats counts cache activity. Evictions counts entries dropped for
// capacity; Invalidate and Purge are not counted.
type Stats struct {
	Hits, Misses, Evictions int64
}

// Cache is safe for concurrent use. Filesystems that report the current
// time as every file's modification time, such as memfs, never hit.
type Cache struct {
	entries *lru.Cache[key, image.Image]
	maxSize int
	logger  *slog.Logger

	hits, misses, evictions atomic.Int64
}

// New returns a cache holding up to opts.Size thumbnails.
func New(opts Options) (*Cache, error) {
	c := &Cache{maxSize: opts.MaxSize, logger: opts.Logger}
	if c.maxSize <= 0 {
		c.maxSize = 256
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if opts.Size < 0 {
		return nil, fmt.Errorf("thumbnail: negative cache size %d", opts.Size)
	}
	if opts.Size > 0 {
		entries, err := lru.New[key, image.Image](opts.Size)
		if err != nil {
			return nil, err
		}
		c.entries = entries
	}
	return c, nil
}

// FromConfig builds a cache from session settings.
func FromConfig(cfg session.Config, logger *slog.Logger) (*Cache, error) {
	return New(Options{Size: cfg.ThumbnailCacheSize, MaxSize: cfg.ThumbnailMaxSize, Logger: logger})
}

// Get returns the thumbnail of path, rendering it on a miss.
func (c *Cache) Get(ctx context.Context, fsys billy.Filesystem, path string, req Request) (image.Image, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	k := key{
		path:      path,
		modTime:   fi.ModTime().UnixNano(),
		size:      fi.Size(),
		maxSize:   c.maxSize,
		part:      req.Part,
		selection: req.Selection,
		params:    req.Params,
	}
	if c.entries != nil {
		if img, ok := c.entries.Get(k); ok {
			c.hits.Add(1)
			c.logger.Debug("thumbnail cache hit", "path", path, "part", req.Part)
			return img, nil
		}
	}
	c.misses.Add(1)
	c.logger.Debug("thumbnail cache miss", "path", path, "part", req.Part)
	img, err := c.render(ctx, fsys, path, req)
	if err != nil {
		return nil, err
	}
	if c.entries != nil && c.entries.Add(k, img) {
		c.evictions.Add(1)
		c.logger.Debug("thumbnail evicted oldest entry", "path", path, "part", req.Part)
	}
	return img, nil
}

func (c *Cache) render(ctx context.Context, fsys billy.Filesystem, path string, req Request) (image.Image, error) {
	s, err := session.Open(ctx, fsys, path, session.Options{Logger: c.logger})
	if err != nil {
		return nil, err
	}
	defer s.Close()
	sel := req.Selection
	if sel == "" {
		layers, err := s.Layers(req.Part)
		if err != nil {
			return nil, err
		}
		if len(layers) == 0 {
			return nil, fmt.Errorf("thumbnail: part %d of %s has no channels", req.Part, path)
		}
		sel = layers[0].Label()
	}
	full, err := s.GetPreview(req.Part, sel, req.Params)
	if err != nil {
		return nil, err
	}
	m := uint(c.maxSize)
	return resize.Thumbnail(m, m, full, resize.Bilinear), nil
}

// Invalidate drops every entry of path.
func (c *Cache) Invalidate(path string) {
	if c.entries == nil {
		return
	}
	for _, k := range c.entries.Keys() {
		if k.path == path {
			c.entries.Remove(k)
		}
	}
}

// Purge drops all entries.
func (c *Cache) Purge() {
	if c.entries != nil {
		c.entries.Purge()
	}
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Evictions: c.evictions.Load()}
}
