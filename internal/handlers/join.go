package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
	"github.com/mattfrayser/whiteboard-relay/internal/session"
)

// JoinHandler binds a connected session to a board
type JoinHandler struct {
	boards     Boards
	autoCreate bool
}

func NewJoinHandler(boards Boards, autoCreate bool) *JoinHandler {
	return &JoinHandler{
		boards:     boards,
		autoCreate: autoCreate,
	}
}

// Handle processes join messages. The board sends the initial snapshot to s
// and announces it to every member.
func (h *JoinHandler) Handle(s *session.Session, msg *protocol.Message) error {
	if msg.WhiteboardID == "" {
		return fmt.Errorf("%w: join requires whiteboardId", protocol.ErrMalformedMessage)
	}
	if state := s.State(); state != session.Connected {
		return fmt.Errorf("%w: join while %s", session.ErrInvalidState, state)
	}

	for {
		b, err := h.lookup(msg.WhiteboardID)
		if err != nil {
			return err
		}

		err = b.Join(s)
		if errors.Is(err, board.ErrClosed) {
			// removed between lookup and join
			continue
		}
		if err != nil {
			return fmt.Errorf("join board %s: %w", b.ID(), err)
		}

		if err := s.Bind(b); err != nil {
			b.Leave(s.ID())
			h.boards.RemoveIfEmpty(b)
			return err
		}

		slog.Info("session joined", "session", s.ID(), "board", b.ID())
		return nil
	}
}

func (h *JoinHandler) lookup(id string) (*board.Board, error) {
	if h.autoCreate {
		return h.boards.GetOrCreate(id)
	}

	b, ok := h.boards.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, id)
	}
	return b, nil
}
