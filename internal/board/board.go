package board

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mattfrayser/whiteboard-relay/internal/element"
	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
)

// ErrClosed is returned by operations on a board the registry has already
// dropped. Callers look the board up again.
var ErrClosed = errors.New("board closed")

// Member is a session as seen by a board: something with an id that accepts
// outbound frames without blocking.
type Member interface {
	ID() string
	Send(msg []byte) bool
}

// Board: one collaborative canvas. Its lock serializes every element
// mutation, membership change and broadcast on the board.
type Board struct {
	id             string
	elements       *element.Store
	members        map[string]Member
	colors         map[string]string
	colorGenerator *ColorGenerator
	closed         bool
	createdAt      time.Time
	lastActive     time.Time
	mu             sync.Mutex
}

func newBoard(id string) *Board {
	now := time.Now()
	return &Board{
		id:             id,
		elements:       element.NewStore(),
		members:        make(map[string]Member),
		colors:         make(map[string]string),
		colorGenerator: NewColorGenerator(),
		createdAt:      now,
		lastActive:     now,
	}
}

func (b *Board) ID() string {
	return b.id
}

// Join adds m to the board, sends it the initial snapshot and announces it to
// every member, m included.
func (b *Board) Join(m Member) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	color, ok := b.colors[m.ID()]
	if !ok {
		color = b.colorGenerator.NextColor()
	}

	initial, err := protocol.Encode(protocol.NewInitial(b.elements.View(), m.ID(), color))
	if err != nil {
		return fmt.Errorf("marshal initial message: %w", err)
	}
	joined, err := protocol.Encode(protocol.UserJoined(m.ID(), color))
	if err != nil {
		return fmt.Errorf("marshal userJoined message: %w", err)
	}

	b.members[m.ID()] = m
	b.colors[m.ID()] = color
	b.lastActive = time.Now()

	if !m.Send(initial) {
		slog.Warn("initial snapshot not delivered", "board", b.id, "session", m.ID())
	}
	b.broadcastLocked(joined)
	return nil
}

// Leave removes a member and announces it to the rest. Reports whether the
// member was present.
func (b *Board) Leave(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.members[sessionID]; !ok {
		return false
	}
	delete(b.members, sessionID)
	delete(b.colors, sessionID)
	b.lastActive = time.Now()

	left, err := protocol.Encode(protocol.UserLeft(sessionID))
	if err != nil {
		slog.Error("marshal userLeft message", "board", b.id, "err", err)
		return true
	}
	b.broadcastLocked(left)
	return true
}

// Mutate runs fn against the element store under the board lock and
// broadcasts the frame it returns. A nil frame broadcasts nothing.
func (b *Board) Mutate(fn func(store *element.Store) ([]byte, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	out, err := fn(b.elements)
	if err != nil {
		return err
	}
	b.lastActive = time.Now()

	if out != nil {
		b.broadcastLocked(out)
	}
	return nil
}

// Broadcast: sends msg to every member without touching the element store
func (b *Board) Broadcast(msg []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.broadcastLocked(msg)
	return nil
}

// broadcastLocked enqueues msg on every member. A failed enqueue is logged
// and skipped; the member's transport notices dead connections on its own.
func (b *Board) broadcastLocked(msg []byte) {
	for id, m := range b.members {
		if !m.Send(msg) {
			slog.Warn("broadcast send failed", "board", b.id, "session", id)
		}
	}
}

// SessionCount: number of joined members
func (b *Board) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.members)
}

// ElementCount: number of stored elements
func (b *Board) ElementCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.elements.Len()
}

// Elements returns a copy of every stored element.
func (b *Board) Elements() map[string]*element.Element {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.elements.Snapshot()
}

// Color: returns the member's presence color on this board
func (b *Board) Color(sessionID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.colors[sessionID]
}

func (b *Board) LastActive() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.lastActive
}

// closeIfEmpty marks the board closed when it has no members.
func (b *Board) closeIfEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.members) > 0 {
		return false
	}
	b.closed = true
	return true
}

// closeIfIdle marks the board closed when it is empty and idle for longer than ttl.
func (b *Board) closeIfIdle(now time.Time, ttl time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.members) > 0 || now.Sub(b.lastActive) <= ttl {
		return false
	}
	b.closed = true
	return true
}
