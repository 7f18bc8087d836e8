package pattern

import "sync/atomic"

// Holder publishes the current Store. A reload replaces the snapshot
// wholesale; readers keep whichever snapshot they loaded.
type Holder struct {
	p atomic.Pointer[Store]
}

// NewHolder returns a holder publishing s.
func NewHolder(s *Store) *Holder {
	h := &Holder{}
	h.p.Store(s)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Store {
	return h.p.Load()
}

// Swap publishes s and returns the previous snapshot.
func (h *Holder) Swap(s *Store) *Store {
	return h.p.Swap(s)
}
