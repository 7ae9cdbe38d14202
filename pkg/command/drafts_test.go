package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftCachePutGet(t *testing.T) {
	d := NewDraftCache(time.Minute)
	id := d.Put(Preview{Platform: "twitter", TaskType: "post"})
	require.NotEmpty(t, id)

	got, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, got.DraftID)
	assert.Equal(t, "twitter", got.Platform)

	_, ok = d.Get("missing")
	assert.False(t, ok)
}

func TestDraftCacheExpiry(t *testing.T) {
	d := NewDraftCache(10 * time.Millisecond)
	id := d.Put(Preview{Platform: "twitter"})

	time.Sleep(30 * time.Millisecond)
	_, ok := d.Get(id)
	assert.False(t, ok)
}
