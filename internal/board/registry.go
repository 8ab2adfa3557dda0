package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattfrayser/whiteboard-relay/internal/protocol"
)

var (
	ErrAlreadyExists = errors.New("board already exists")
	ErrInvalidID     = errors.New("invalid board id")
)

type boardID struct {
	ID string `validate:"required,max=128,printascii,excludesall=<>"`
}

// ValidateID: checks a client-supplied board id
func ValidateID(id string) error {
	if err := protocol.Validate(boardID{ID: id}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return nil
}

// Registry owns every live board. Its lock only guards the id → board map;
// traffic on a board never takes it.
type Registry struct {
	boards map[string]*Board
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		boards: make(map[string]*Board),
	}
}

// Create registers an empty board. With requestedID empty a fresh random id
// is generated; otherwise the id must be free.
func (r *Registry) Create(requestedID string) (*Board, error) {
	if requestedID != "" {
		if err := ValidateID(requestedID); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := requestedID
	if id == "" {
		id = r.freshIDLocked()
	} else if _, taken := r.boards[id]; taken {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}

	b := newBoard(id)
	r.boards[id] = b
	slog.Info("board created", "board", id)
	return b, nil
}

// GetOrCreate returns the board with id, creating an empty one if needed.
func (r *Registry) GetOrCreate(id string) (*Board, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	if b, ok := r.Get(id); ok {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.boards[id]; ok {
		return b, nil
	}
	b := newBoard(id)
	r.boards[id] = b
	slog.Info("board created on join", "board", id)
	return b, nil
}

// Get: returns the board with id if it is live
func (r *Registry) Get(id string) (*Board, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.boards[id]
	return b, ok
}

// RemoveIfEmpty drops b from the registry iff it has no members. A board that
// has since been replaced under the same id is left alone.
func (r *Registry) RemoveIfEmpty(b *Board) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.boards[b.ID()] != b {
		return false
	}
	if !b.closeIfEmpty() {
		return false
	}
	delete(r.boards, b.ID())
	slog.Info("board removed", "board", b.ID())
	return true
}

// Cleanup removes empty boards idle for longer than ttl, such as boards
// created over HTTP that nobody joined.
func (r *Registry) Cleanup(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, b := range r.boards {
		if b.closeIfIdle(now, ttl) {
			delete(r.boards, id)
			removed++
		}
	}
	return removed
}

// Run: reaps idle boards every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Cleanup(ttl); n > 0 {
				slog.Info("idle boards removed", "count", n)
			}
		}
	}
}

// Count: number of live boards
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.boards)
}

func (r *Registry) freshIDLocked() string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		if _, taken := r.boards[id]; !taken {
			return id
		}
	}
}
