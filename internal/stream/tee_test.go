package stream

import (
	"testing"
	"time"

	"solace-api/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deltas(chunks ...string) []engine.Event {
	evs := make([]engine.Event, 0, len(chunks)+1)
	for _, chunk := range chunks {
		evs = append(evs, engine.Event{Type: engine.EventDelta, Delta: chunk})
	}
	return append(evs, engine.Event{Type: engine.EventDone})
}

func feed(evs []engine.Event) <-chan engine.Event {
	upstream := make(chan engine.Event)
	go func() {
		defer close(upstream)
		for _, ev := range evs {
			upstream <- ev
		}
	}()
	return upstream
}

func TestFork_BothBranchesSeeAllEventsInOrder(t *testing.T) {
	evs := deltas("one", "two", "three", "four", "five")
	clientDone := make(chan struct{})

	client, collector := Fork(clientDone, feed(evs))

	var got []engine.Event
	collected := make(chan []engine.Event, 1)
	go func() {
		var evs []engine.Event
		for ev := range collector {
			evs = append(evs, ev)
		}
		collected <- evs
	}()
	for ev := range client {
		got = append(got, ev)
	}

	assert.Equal(t, evs, got)
	assert.Equal(t, evs, <-collected)
}

func TestFork_CollectorDrainsAfterClientDisconnect(t *testing.T) {
	evs := deltas("one", "two", "three", "four", "five")
	clientDone := make(chan struct{})

	client, collector := Fork(clientDone, feed(evs))

	collected := make(chan []engine.Event, 1)
	go func() {
		var evs []engine.Event
		for ev := range collector {
			evs = append(evs, ev)
		}
		collected <- evs
	}()

	// Client consumes two chunks and goes away.
	<-client
	<-client
	close(clientDone)
	for range client {
	}

	// Disconnect cancels delivery, not draining: the collector still sees
	// every event the upstream produced, in emission order.
	select {
	case got := <-collected:
		assert.Equal(t, evs, got)
	case <-time.After(5 * time.Second):
		t.Fatal("collector branch did not drain after client disconnect")
	}
}

func TestFork_ClosesBothBranchesOnUpstreamEnd(t *testing.T) {
	clientDone := make(chan struct{})
	upstream := make(chan engine.Event)
	close(upstream)

	client, collector := Fork(clientDone, upstream)

	_, open := <-client
	require.False(t, open)
	_, open = <-collector
	require.False(t, open)
}

func TestFork_DisconnectBeforeFirstChunk(t *testing.T) {
	evs := deltas("one", "two")
	clientDone := make(chan struct{})
	close(clientDone)

	client, collector := Fork(clientDone, feed(evs))

	var fromCollector []engine.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range collector {
			fromCollector = append(fromCollector, ev)
		}
	}()
	for range client {
	}
	<-done

	assert.Equal(t, evs, fromCollector)
}
