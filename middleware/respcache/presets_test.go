package respcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPresets(t *testing.T) {
	assert.Equal(t, time.Minute, Short().TTL)
	assert.Equal(t, 5*time.Minute, Medium().TTL)
	assert.Equal(t, time.Hour, Long().TTL)

	opts, ok := Preset(" LONG ")
	assert.True(t, ok)
	assert.Equal(t, "long", opts.Name)

	_, ok = Preset("forever")
	assert.False(t, ok)

	assert.Equal(t, []string{"long", "medium", "short"}, PresetNames())
}
