package element

import (
	"encoding/json"
	"maps"
)

// Payload is the opaque attribute bag of an element. The relay only merges it.
type Payload map[string]interface{}

// Element: one drawable object on a board (stroke, text, sticky note, image, ...)
type Element struct {
	ID      string
	Type    string
	Payload Payload
	OwnerID string
}

// New: builds an element, copying the payload so the caller's map is not aliased
func New(id, kind string, payload Payload, ownerID string) *Element {
	p := make(Payload, len(payload))
	maps.Copy(p, payload)
	return &Element{
		ID:      id,
		Type:    kind,
		Payload: p,
		OwnerID: ownerID,
	}
}

// Merge: shallow merge, keys present in patch overwrite, others stay
func (e *Element) Merge(patch Payload) {
	if e.Payload == nil {
		e.Payload = make(Payload, len(patch))
	}
	maps.Copy(e.Payload, patch)
}

// Clone returns a copy whose top-level payload map is independent of e.
func (e *Element) Clone() *Element {
	return New(e.ID, e.Type, e.Payload, e.OwnerID)
}

// MarshalJSON flattens the payload next to id, type and userId.
// The reserved keys always win over payload keys of the same name.
func (e *Element) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(e.Payload)+3)
	maps.Copy(flat, e.Payload)
	flat["id"] = e.ID
	flat["type"] = e.Type
	flat["userId"] = e.OwnerID
	return json.Marshal(flat)
}
