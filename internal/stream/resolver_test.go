package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_StartsAtRequestedModel(t *testing.T) {
	r := NewResolver("model-a")
	assert.Equal(t, "model-a", r.ModelID())
	assert.False(t, r.Resolved())
}

func TestResolver_ResolvedValueOverridesRequested(t *testing.T) {
	r := NewResolver("model-a")

	assert.True(t, r.Observe("model-b"))
	assert.Equal(t, "model-b", r.ModelID())
	assert.True(t, r.Resolved())
}

func TestResolver_RepeatOfRequestedIDDoesNotRevert(t *testing.T) {
	r := NewResolver("model-a")
	r.Observe("model-b")

	// Last distinct value wins, not last event.
	assert.False(t, r.Observe("model-a"))
	assert.Equal(t, "model-b", r.ModelID())
}

func TestResolver_LaterDistinctValueStillWins(t *testing.T) {
	r := NewResolver("model-a")
	r.Observe("model-b")

	assert.True(t, r.Observe("model-c"))
	assert.Equal(t, "model-c", r.ModelID())
}

func TestResolver_IgnoresEmptyAndRepeatValues(t *testing.T) {
	r := NewResolver("model-a")

	assert.False(t, r.Observe(""))
	assert.False(t, r.Observe("model-a"))
	r.Observe("model-b")
	assert.False(t, r.Observe("model-b"))
	assert.Equal(t, "model-b", r.ModelID())
}
