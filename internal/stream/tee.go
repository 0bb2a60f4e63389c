package stream

import (
	"solace-api/internal/engine"
)

// Fork duplicates one upstream event stream into a client-facing branch and a
// collector branch. A single reader goroutine feeds both, so each branch sees
// every event in upstream emission order. The collector branch always drains
// to the end of the upstream; once clientDone fires, deliveries to the client
// branch stop but reading does not. Disconnect cancels delivery, not
// generation or persistence.
//
// The collector channel is buffered so a momentarily slow client write does
// not stall accumulation. Both returned channels close when the upstream
// closes.
func Fork(clientDone <-chan struct{}, upstream <-chan engine.Event) (<-chan engine.Event, <-chan engine.Event) {
	client := make(chan engine.Event)
	collector := make(chan engine.Event, 64)

	go func() {
		defer close(client)
		defer close(collector)
		clientGone := false
		for ev := range upstream {
			collector <- ev
			if clientGone {
				continue
			}
			select {
			case client <- ev:
			case <-clientDone:
				clientGone = true
			}
		}
	}()

	return client, collector
}
