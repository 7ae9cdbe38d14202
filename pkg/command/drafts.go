package command

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultDraftTTL bounds how long a preview survives server-side. Drafts are
// a convenience for client refresh; the client-held copy stays authoritative
// and confirm never requires one.
const DefaultDraftTTL = 15 * time.Minute

// DraftCache holds previews between the preview and confirm steps, keyed by
// a generated draft id.
type DraftCache struct {
	c *gocache.Cache
}

func NewDraftCache(ttl time.Duration) *DraftCache {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &DraftCache{c: gocache.New(ttl, 2*ttl)}
}

// Put stores the preview and returns its draft id.
func (d *DraftCache) Put(p Preview) string {
	id := uuid.NewString()
	p.DraftID = id
	d.c.SetDefault(id, p)
	return id
}

// Get returns a live draft, if any.
func (d *DraftCache) Get(id string) (Preview, bool) {
	v, ok := d.c.Get(id)
	if !ok {
		return Preview{}, false
	}
	return v.(Preview), true
}
