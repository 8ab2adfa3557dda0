package handlers

import (
	"fmt"

	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
	"github.com/mattfrayser/whiteboard-relay/internal/session"
)

// ViewportHandler handles transient panZoom messages
type ViewportHandler struct{}

func NewViewportHandler() *ViewportHandler {
	return &ViewportHandler{}
}

// Handle broadcasts the frame as-is. Frames over the session's viewport
// budget are dropped silently.
func (h *ViewportHandler) Handle(s *session.Session, msg *protocol.Message) error {
	b, err := joinedBoard(s, msg)
	if err != nil {
		return err
	}
	if !s.AllowViewport() {
		return nil
	}

	out, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("marshal panZoom message: %w", err)
	}
	return b.Broadcast(out)
}
