package stream

// Resolver tracks which backend model actually served a stream. It starts at
// the requested model and may be overwritten by metadata events once routing
// settles upstream. Resolution events are strictly ordered within one stream,
// so no locking is needed.
//
// The last distinct value wins, not the last event: once a resolved id has
// been observed, a later event that merely repeats the originally requested
// id does not revert it.
type Resolver struct {
	requested string
	current   string
	resolved  bool
}

func NewResolver(requestedModel string) *Resolver {
	return &Resolver{requested: requestedModel, current: requestedModel}
}

// Observe feeds one metadata value. Returns true when the current model id
// changed.
func (r *Resolver) Observe(modelID string) bool {
	if modelID == "" || modelID == r.current {
		return false
	}
	if r.resolved && modelID == r.requested {
		return false
	}
	r.current = modelID
	r.resolved = true
	return true
}

// ModelID reports the authoritative model id as of the events observed so far.
func (r *Resolver) ModelID() string {
	return r.current
}

func (r *Resolver) Resolved() bool {
	return r.resolved
}
