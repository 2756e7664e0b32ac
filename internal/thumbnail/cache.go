// Package thumbnail precomputes one filtered preview per catalog entry.
//
// The cache renders every registry transform onto a single small sample
// image the first time any thumbnail is read, then serves lookups from
// memory for the rest of the process. Neither the sample nor the catalog
// changes, so entries are never invalidated.
package thumbnail

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/filter"
	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/logging"
)

// Cache holds the filtered sample thumbnails. Safe for concurrent use.
type Cache struct {
	registry *filter.Registry
	sample   *imaging.Buffer
	log      *logrus.Entry

	once     sync.Once
	thumbs   []*imaging.Buffer
	degraded []int
}

// ErrNoSample is returned by New when no sample image is given.
var ErrNoSample = errors.New("thumbnail cache needs a sample image")

// New creates a cache over registry. Nothing is rendered until the first read.
func New(registry *filter.Registry, sample *imaging.Buffer, logger *logrus.Logger) (*Cache, error) {
	if registry == nil {
		return nil, errors.New("thumbnail cache needs a filter registry")
	}
	if sample == nil {
		return nil, ErrNoSample
	}
	return &Cache{
		registry: registry,
		sample:   sample,
		log:      logging.Component(logger, "thumbnail"),
	}, nil
}

// Get returns the thumbnail for the registry entry at index.
//
// Repeated calls return the same *imaging.Buffer. An index outside the
// registry fails with filter.ErrOutOfRange.
func (c *Cache) Get(index int) (*imaging.Buffer, error) {
	if err := c.registry.Check(index); err != nil {
		return nil, err
	}
	c.once.Do(c.compute)
	return c.thumbs[index], nil
}

// All returns every thumbnail in registry order.
func (c *Cache) All() []*imaging.Buffer {
	c.once.Do(c.compute)
	out := make([]*imaging.Buffer, len(c.thumbs))
	copy(out, c.thumbs)
	return out
}

// Degraded lists the indexes whose transform failed and which hold the
// unfiltered sample instead.
func (c *Cache) Degraded() []int {
	c.once.Do(c.compute)
	out := make([]int, len(c.degraded))
	copy(out, c.degraded)
	return out
}

// Sample returns the image the thumbnails are rendered from.
func (c *Cache) Sample() *imaging.Buffer { return c.sample }

func (c *Cache) compute() {
	start := time.Now()
	n := c.registry.Count()
	c.thumbs = make([]*imaging.Buffer, n)

	for i := 0; i < n; i++ {
		t, _ := c.registry.Get(i)
		out, err := t.ApplyOrOriginal(c.sample)
		if err != nil {
			// One broken thumbnail must not hide the others.
			c.log.WithError(err).WithFields(logrus.Fields{
				"index":  i,
				"filter": t.DisplayName(),
			}).Warn("thumbnail fell back to unfiltered sample")
			c.degraded = append(c.degraded, i)
		}
		c.thumbs[i] = out
	}

	c.log.WithFields(logrus.Fields{
		"count":    n,
		"degraded": len(c.degraded),
		"size":     c.sample.String(),
		"elapsed":  time.Since(start).String(),
	}).Debug("thumbnails rendered")
}
