// Package history keeps the ordered conversation log and persists it to a
// key-value medium.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Store is the append-only conversation log. All methods are safe for
// concurrent use. Persistence failures are logged and never returned, the
// in-memory log stays authoritative.
type Store struct {
	mu     sync.Mutex
	turns  []Turn
	medium Medium
	key    string
}

type StoreOption func(*Store)

// WithKey overrides the key the log is persisted under.
func WithKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore creates an empty store persisting to medium. A nil medium keeps
// the log in memory only.
func NewStore(medium Medium, opts ...StoreOption) *Store {
	s := &Store{medium: medium, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds turn to the end of the log and persists the log. The whole
// log is encoded and written on every call, so the cost of an append grows
// with the length of the log even though the in-memory append does not.
func (s *Store) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, turn)
	s.persistLocked()
}

// Recent returns up to the last n turns in order.
func (s *Store) Recent(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return []Turn{}
	}
	start := max(len(s.turns)-n, 0)
	recent := make([]Turn, len(s.turns)-start)
	copy(recent, s.turns[start:])
	return recent
}

// Turns returns a copy of the whole log.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := []Turn{}
	if err := copier.CopyWithOption(&turns, &s.turns, copier.Option{DeepCopy: true}); err != nil {
		turns = make([]Turn, len(s.turns))
		copy(turns, s.turns)
	}
	return turns
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Clear empties the log and persists the empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.persistLocked()
}

// Load replaces the in-memory log with the persisted one. Absent or
// malformed data results in an empty log.
func (s *Store) Load() {
	_, span := tracer.Start(context.Background(), "load history")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	if s.medium == nil {
		return
	}

	data, err := s.medium.Read(s.key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read history")
		logger.Warn("failed to read history, starting empty", "key", s.key, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	turns, err := decodeTurns(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed history")
		logger.Warn("discarding malformed history", "key", s.key, "error", err)
		return
	}
	s.turns = turns
	span.SetAttributes(attribute.Int("history.turns", len(turns)))
}

func (s *Store) persistLocked() {
	if s.medium == nil {
		return
	}

	turns := s.turns
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		logger.Error("failed to encode history", "error", err)
		return
	}
	if err := s.medium.Write(s.key, data); err != nil {
		logger.Warn("failed to persist history", "key", s.key, "error", err)
	}
}

func decodeTurns(data []byte) ([]Turn, error) {
	var raw []Turn
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for i, turn := range raw {
		if !turn.Role.valid() {
			return nil, fmt.Errorf("turn %d has unknown role %q", i, turn.Role)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
