package element

import (
	"github.com/google/uuid"
)

// Store maps element id to element for a single board.
// It is not safe for concurrent use; the owning board serializes access.
type Store struct {
	elements map[string]*Element
}

func NewStore() *Store {
	return &Store{
		elements: make(map[string]*Element),
	}
}

// NewID: returns a fresh element id
func NewID() string {
	return uuid.NewString()
}

// Upsert creates or merges an element.
//
// With an id naming an existing element the payload is merged into it and
// its type is left alone. Otherwise a new element is stored, under id when
// given or under a generated id. The returned id is the stored element's id.
func (s *Store) Upsert(id, kind string, payload Payload, ownerID string) (string, bool) {
	if id != "" {
		if existing, ok := s.elements[id]; ok {
			existing.Merge(payload)
			return id, false
		}
	} else {
		id = s.freshID()
	}

	s.elements[id] = New(id, kind, payload, ownerID)
	return id, true
}

// Update: merges payload into an existing element, reports whether it existed
func (s *Store) Update(id string, payload Payload) bool {
	existing, ok := s.elements[id]
	if !ok {
		return false
	}
	existing.Merge(payload)
	return true
}

// Delete: removes an element, reports whether it existed
func (s *Store) Delete(id string) bool {
	if _, ok := s.elements[id]; !ok {
		return false
	}
	delete(s.elements, id)
	return true
}

// Get returns a copy of the element.
func (s *Store) Get(id string) (*Element, bool) {
	e, ok := s.elements[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

func (s *Store) Len() int {
	return len(s.elements)
}

// View exposes the live map for encoding while the caller holds the board lock.
func (s *Store) View() map[string]*Element {
	return s.elements
}

// Snapshot: copies every element
func (s *Store) Snapshot() map[string]*Element {
	out := make(map[string]*Element, len(s.elements))
	for id, e := range s.elements {
		out[id] = e.Clone()
	}
	return out
}

func (s *Store) freshID() string {
	for {
		id := NewID()
		if _, taken := s.elements[id]; !taken {
			return id
		}
	}
}
