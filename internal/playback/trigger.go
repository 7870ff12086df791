package playback

import (
	"slices"
	"sync"
)

// TriggerID identifies a trigger element on the page.
type TriggerID string

// Trigger is a UI element bound to start and stop one spoken text.
type Trigger struct {
	ID   TriggerID `json:"id"`
	Text string    `json:"text"`
}

// TriggerState is the visual state of one trigger.
type TriggerState struct {
	Playing bool    `json:"playing"`
	Loading bool    `json:"loading"`
	Level   float64 `json:"level"` // percent; mean of the analyser bins
}

// Registry holds the triggers known to the page, in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []TriggerID
	byID  map[TriggerID]Trigger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[TriggerID]Trigger)}
}

// Register adds triggers, replacing the text of any already known.
func (r *Registry) Register(ts ...Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range ts {
		if _, ok := r.byID[t.ID]; !ok {
			r.order = append(r.order, t.ID)
		}
		r.byID[t.ID] = t
	}
}

// Remove forgets a trigger. A session it owns keeps running; it just has
// no UI left to update.
func (r *Registry) Remove(id TriggerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	r.order = slices.DeleteFunc(r.order, func(o TriggerID) bool { return o == id })
}

// Get looks up a trigger.
func (r *Registry) Get(id TriggerID) (Trigger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// All returns the triggers in registration order.
func (r *Registry) All() []Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Trigger, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
