package handlers

import (
	"github.com/mattfrayser/whiteboard-relay/internal/board"
)

// Boards is the part of the board registry the handlers use
type Boards interface {
	Get(id string) (*board.Board, bool)
	GetOrCreate(id string) (*board.Board, error)
	RemoveIfEmpty(b *board.Board) bool
}
