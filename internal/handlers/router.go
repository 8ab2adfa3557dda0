// Package handlers decodes client frames, applies them to the session's board
// and decides what gets broadcast.
package handlers

import (
	"errors"
	"fmt"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
	"github.com/mattfrayser/whiteboard-relay/internal/element"
	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
	"github.com/mattfrayser/whiteboard-relay/internal/session"
)

var (
	ErrBoardNotFound    = errors.New("board not found")
	ErrBoardMismatch    = errors.New("whiteboardId does not match joined board")
	ErrMissingElementID = fmt.Errorf("%w: missing elementId", protocol.ErrMalformedMessage)
)

// Options: behavior switches for the router
type Options struct {
	// AutoCreateBoards lets join vivify unknown boards.
	AutoCreateBoards bool
	// Sanitizer, when set, strips HTML from element payloads.
	Sanitizer *element.Sanitizer
}

// MessageRouter routes incoming messages to the handler for their class
type MessageRouter struct {
	joinHandler     *JoinHandler
	elementHandler  *ElementHandler
	viewportHandler *ViewportHandler
}

func NewMessageRouter(boards Boards, opts Options) *MessageRouter {
	return &MessageRouter{
		joinHandler:     NewJoinHandler(boards, opts.AutoCreateBoards),
		elementHandler:  NewElementHandler(opts.Sanitizer),
		viewportHandler: NewViewportHandler(),
	}
}

// Route: process one frame from s. Every error means the frame was dropped;
// none of them should close the connection.
func (mr *MessageRouter) Route(s *session.Session, raw []byte) error {
	msg, err := protocol.Decode(raw)
	if err != nil {
		return err
	}

	switch msg.Class() {
	case protocol.ClassJoin:
		return mr.joinHandler.Handle(s, msg)
	case protocol.ClassCreate:
		return mr.elementHandler.HandleCreate(s, msg)
	case protocol.ClassUpdate:
		return mr.elementHandler.HandleUpdate(s, msg)
	case protocol.ClassDelete:
		return mr.elementHandler.HandleDelete(s, msg)
	case protocol.ClassTransient:
		return mr.viewportHandler.Handle(s, msg)
	default:
		return fmt.Errorf("%w: %q", protocol.ErrUnknownMessageType, msg.Type)
	}
}

// joinedBoard returns the board s joined. A whiteboardId on the frame, when
// present, must name that board.
func joinedBoard(s *session.Session, msg *protocol.Message) (*board.Board, error) {
	b := s.Board()
	if b == nil || s.State() != session.Joined {
		return nil, fmt.Errorf("%w: %s before join", session.ErrInvalidState, msg.Type)
	}
	if msg.WhiteboardID != "" && msg.WhiteboardID != b.ID() {
		return nil, fmt.Errorf("%w: got %q, joined %q", ErrBoardMismatch, msg.WhiteboardID, b.ID())
	}
	return b, nil
}
