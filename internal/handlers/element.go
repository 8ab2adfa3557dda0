package handlers

import (
	"log/slog"

	"github.com/mattfrayser/whiteboard-relay/internal/element"
	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
	"github.com/mattfrayser/whiteboard-relay/internal/session"
)

// ElementHandler: handles element messages (create-or-merge, merge, delete)
type ElementHandler struct {
	sanitizer *element.Sanitizer
}

func NewElementHandler(sanitizer *element.Sanitizer) *ElementHandler {
	return &ElementHandler{
		sanitizer: sanitizer,
	}
}

// HandleCreate: draw, text, stickyNote and image messages.
// An existing elementId is merged into; anything else creates an element.
// A generated id is written back onto the frame before it is broadcast.
func (h *ElementHandler) HandleCreate(s *session.Session, msg *protocol.Message) error {
	b, err := joinedBoard(s, msg)
	if err != nil {
		return err
	}
	payload := h.clean(msg)

	return b.Mutate(func(store *element.Store) ([]byte, error) {
		id, created := store.Upsert(msg.ElementID, msg.Type, payload, s.ID())
		if created && msg.ElementID == "" {
			msg.SetElementID(id)
		}
		return msg.Encode()
	})
}

// HandleUpdate: move and edit messages. Unknown elements are left unstored
// but the frame is still broadcast.
func (h *ElementHandler) HandleUpdate(s *session.Session, msg *protocol.Message) error {
	b, err := joinedBoard(s, msg)
	if err != nil {
		return err
	}
	if msg.ElementID == "" {
		return ErrMissingElementID
	}
	payload := h.clean(msg)

	return b.Mutate(func(store *element.Store) ([]byte, error) {
		if !store.Update(msg.ElementID, payload) {
			slog.Debug("update for unknown element", "board", b.ID(), "element", msg.ElementID)
		}
		return msg.Encode()
	})
}

// HandleDelete: delete messages, broadcast whether or not the element existed
func (h *ElementHandler) HandleDelete(s *session.Session, msg *protocol.Message) error {
	b, err := joinedBoard(s, msg)
	if err != nil {
		return err
	}
	if msg.ElementID == "" {
		return ErrMissingElementID
	}

	return b.Mutate(func(store *element.Store) ([]byte, error) {
		store.Delete(msg.ElementID)
		return msg.Encode()
	})
}

func (h *ElementHandler) clean(msg *protocol.Message) element.Payload {
	if h.sanitizer == nil || msg.Payload == nil {
		return msg.Payload
	}
	cleaned := h.sanitizer.Clean(msg.Payload)
	msg.SetPayload(cleaned)
	return cleaned
}
