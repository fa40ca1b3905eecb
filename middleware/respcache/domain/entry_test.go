package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntry_Fresh(t *testing.T) {
	stored := time.Unix(1000, 0)
	e := Entry{StoredAt: stored, TTL: 100 * time.Millisecond}

	assert.True(t, e.Fresh(stored))
	assert.True(t, e.Fresh(stored.Add(99*time.Millisecond)))
	assert.False(t, e.Fresh(stored.Add(100*time.Millisecond)), "now-storedAt == ttl is stale")
	assert.False(t, e.Fresh(stored.Add(time.Second)))
}
