// Package session holds one connected client's identity, its board
// membership and its bounded outbound queue.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mattfrayser/whiteboard-relay/internal/board"
)

var ErrInvalidState = errors.New("invalid session state")

// State of a session. Transitions only move forward.
type State int

const (
	Connected State = iota
	Joined
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Joined:
		return "joined"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options: per-session tuning
type Options struct {
	SendBuffer   int
	PanZoomRate  float64 // transient messages per second, 0 disables throttling
	PanZoomBurst int
}

// Session represents one live connection
type Session struct {
	id       string
	send     chan []byte
	viewport *rate.Limiter
	board    *board.Board
	state    State
	mu       sync.Mutex
	once     sync.Once
}

func New(opts Options) *Session {
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = 1
	}

	s := &Session{
		id:   uuid.NewString(),
		send: make(chan []byte, buffer),
	}
	if opts.PanZoomRate > 0 {
		s.viewport = rate.NewLimiter(rate.Limit(opts.PanZoomRate), max(opts.PanZoomBurst, 1))
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Send enqueues msg without blocking. It reports false when the queue is full
// (the message is dropped) or the session is closed.
func (s *Session) Send(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return false
	}

	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// Outbound is drained by the connection's writer. It is closed when the
// session closes.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Board: the board this session joined, nil before join
func (s *Session) Board() *board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.board
}

// Bind moves a connected session to Joined on b.
func (s *Session) Bind(b *board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected {
		return fmt.Errorf("%w: cannot join while %s", ErrInvalidState, s.state)
	}
	s.board = b
	s.state = Joined
	return nil
}

// AllowViewport: reports whether a transient viewport message may go out now
func (s *Session) AllowViewport() bool {
	if s.viewport == nil {
		return true
	}
	return s.viewport.Allow()
}

// Close moves the session to Closed and closes its outbound queue. Only the
// first call has an effect; it returns the joined board (if any) and true.
func (s *Session) Close() (*board.Board, bool) {
	var (
		b     *board.Board
		first bool
	)
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		b = s.board
		s.state = Closed
		close(s.send)
		first = true
	})
	return b, first
}
