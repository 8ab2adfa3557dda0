package protocol

import (
	"encoding/json"

	"github.com/mattfrayser/whiteboard-relay/internal/element"
)

// Initial is sent once, to the joining session only.
type Initial struct {
	Type     string                      `json:"type"`
	Elements map[string]*element.Element `json:"elements"`
	UserID   string                      `json:"userId"`
	Color    string                      `json:"color,omitempty"`
}

// Presence announces a session entering or leaving a board.
type Presence struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Color  string `json:"color,omitempty"`
}

func NewInitial(elements map[string]*element.Element, userID, color string) Initial {
	if elements == nil {
		elements = map[string]*element.Element{}
	}
	return Initial{
		Type:     TypeInitial,
		Elements: elements,
		UserID:   userID,
		Color:    color,
	}
}

func UserJoined(userID, color string) Presence {
	return Presence{Type: TypeUserJoined, UserID: userID, Color: color}
}

func UserLeft(userID string) Presence {
	return Presence{Type: TypeUserLeft, UserID: userID}
}

// Encode marshals a server-originated message.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
