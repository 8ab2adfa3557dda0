// Package protocol defines the relay's JSON wire format: the inbound
// envelope, the message classes the relay dispatches on, and the messages the
// server originates itself.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattfrayser/whiteboard-relay/internal/element"
)

// Inbound message types
const (
	TypeJoin       = "join"
	TypeDraw       = "draw"
	TypeText       = "text"
	TypeStickyNote = "stickyNote"
	TypeImage      = "image"
	TypeMove       = "move"
	TypeEdit       = "edit"
	TypeDelete     = "delete"
	TypePanZoom    = "panZoom"
)

// Outbound message types
const (
	TypeInitial    = "initial"
	TypeUserJoined = "userJoined"
	TypeUserLeft   = "userLeft"
)

var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Class groups message types by what the relay does with them.
type Class int

const (
	ClassUnknown Class = iota
	ClassJoin
	ClassCreate    // create-or-merge: draw, text, stickyNote, image
	ClassUpdate    // merge-only: move, edit
	ClassDelete
	ClassTransient // never stored: panZoom
)

func (c Class) String() string {
	switch c {
	case ClassJoin:
		return "join"
	case ClassCreate:
		return "create"
	case ClassUpdate:
		return "update"
	case ClassDelete:
		return "delete"
	case ClassTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify: maps a message type to its class
func Classify(messageType string) Class {
	switch messageType {
	case TypeJoin:
		return ClassJoin
	case TypeDraw, TypeText, TypeStickyNote, TypeImage:
		return ClassCreate
	case TypeMove, TypeEdit:
		return ClassUpdate
	case TypeDelete:
		return ClassDelete
	case TypePanZoom:
		return ClassTransient
	default:
		return ClassUnknown
	}
}

// Message is one decoded inbound frame. The typed fields are read by the
// relay; every field the client sent is kept so the frame can be rebroadcast
// verbatim.
type Message struct {
	Type         string          `json:"type" validate:"required,max=64"`
	WhiteboardID string          `json:"whiteboardId" validate:"omitempty,max=128,printascii,excludesall=<>"`
	ElementID    string          `json:"elementId" validate:"omitempty,max=256,printascii,excludesall=<>"`
	Payload      element.Payload `json:"payload"`

	fields map[string]interface{}
}

// Decode parses and validates a client frame. Any failure wraps
// ErrMalformedMessage.
func Decode(data []byte) (*Message, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedMessage)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := Validate(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	msg.fields = fields
	return &msg, nil
}

// Class of the message's type
func (m *Message) Class() Class {
	return Classify(m.Type)
}

// SetElementID annotates the frame with a server-assigned element id. When
// the frame carries a payload object the id is mirrored into payload.id.
func (m *Message) SetElementID(id string) {
	m.ElementID = id
	m.fields["elementId"] = id
	if p, ok := m.fields["payload"].(map[string]interface{}); ok {
		p["id"] = id
	}
}

// SetPayload replaces the payload in both the typed view and the frame.
func (m *Message) SetPayload(p element.Payload) {
	m.Payload = p
	if p == nil {
		return
	}
	m.fields["payload"] = map[string]interface{}(p)
}

// Encode serializes the frame with every field the client sent.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m.fields)
}
