package stream

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"solace-api/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_AppendAndCommit(t *testing.T) {
	store := database.NewMockStore()
	c := NewCollector(store, "ses_1", "req1", "solace-core", 1024)

	c.Append("Hi")
	c.Append(" there")

	require.NoError(t, c.Commit(context.Background()))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hi there", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[0].Role)
	assert.Equal(t, "ses_1", msgs[0].SessionID)
	assert.Equal(t, "solace-core", msgs[0].ModelID)
	assert.False(t, msgs[0].Truncated)
	assert.False(t, msgs[0].Incomplete)
}

func TestCollector_TruncatesPastCapWithoutError(t *testing.T) {
	c := NewCollector(database.NewMockStore(), "ses_1", "req1", "m", 10)

	c.Append("hello")
	assert.False(t, c.Truncated())

	c.Append(" wide world")
	assert.True(t, c.Truncated())
	assert.Equal(t, "hello wide", c.Transcript())

	// Further appends drop silently; the flag stays set, the buffer capped.
	c.Append("more")
	c.Append("and more")
	assert.True(t, c.Truncated())
	assert.Equal(t, "hello wide", c.Transcript())
}

func TestCollector_TruncatesOnRuneBoundary(t *testing.T) {
	// A multibyte rune straddling the cap must be dropped whole, never cut
	// mid-encoding: the store column is utf8mb4 and rejects invalid bytes.
	c := NewCollector(database.NewMockStore(), "ses_1", "req1", "m", 2)

	c.Append("aé")
	assert.True(t, c.Truncated())
	assert.Equal(t, "a", c.Transcript())
	assert.True(t, utf8.ValidString(c.Transcript()))

	// The freed byte does not get refilled by later chunks.
	c.Append("b")
	assert.Equal(t, "a", c.Transcript())

	c = NewCollector(database.NewMockStore(), "ses_1", "req1", "m", 5)
	c.Append("héllo world")
	assert.True(t, c.Truncated())
	assert.True(t, utf8.ValidString(c.Transcript()))
	assert.Equal(t, "héll", c.Transcript())
}

func TestCollector_ChunkExactlyFillingCapIsNotTruncation(t *testing.T) {
	c := NewCollector(database.NewMockStore(), "ses_1", "req1", "m", 5)

	c.Append("12345")
	assert.False(t, c.Truncated())
	assert.Equal(t, "12345", c.Transcript())
}

func TestCollector_ResolvedModelWinsInCommit(t *testing.T) {
	store := database.NewMockStore()
	c := NewCollector(store, "ses_1", "req1", "requested-a", 1024)

	c.Append("answer")
	c.SetModelID("resolved-b")
	require.NoError(t, c.Commit(context.Background()))

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "resolved-b", msgs[0].ModelID)
}

func TestCollector_MarkIncompletePersistsPartialTranscript(t *testing.T) {
	store := database.NewMockStore()
	c := NewCollector(store, "ses_1", "req1", "m", 1024)

	c.Append("partial ans")
	c.MarkIncomplete("upstream timeout")
	require.NoError(t, c.Commit(context.Background()))

	incomplete, reason := c.Incomplete()
	assert.True(t, incomplete)
	assert.Equal(t, "upstream timeout", reason)

	msgs := store.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Incomplete)
	assert.Equal(t, "partial ans", msgs[0].Content)
}

func TestCollector_RecommitIsIdempotent(t *testing.T) {
	store := database.NewMockStore()
	c := NewCollector(store, "ses_1", "req1", "m", 1024)

	c.Append("answer")
	require.NoError(t, c.Commit(context.Background()))
	require.NoError(t, c.Commit(context.Background()))

	assert.Len(t, store.Messages(), 1)
}

func TestCollector_CommitSurfacesStoreError(t *testing.T) {
	store := database.NewMockStore()
	store.FailAppends(1, errors.New("connection reset"))
	c := NewCollector(store, "ses_1", "req1", "m", 1024)

	c.Append("answer")
	require.Error(t, c.Commit(context.Background()))
	// The caller owns the single retry.
	require.NoError(t, c.Commit(context.Background()))
	assert.Len(t, store.Messages(), 1)
}
