// Package session holds the chat history of one studio user and persists it
// to a HistoryStore as a single record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bookcraft-backend/internal/models"
)

var (
	ErrNotReady = errors.New("history persistence is not ready")
	ErrCorrupt  = errors.New("stored history could not be decoded")
)

// PersistError wraps a failure of the underlying store.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("history %s failed: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

type Session struct {
	identity Identity
	store    HistoryStore

	mu       sync.Mutex
	history  []models.ChatMessage
	epoch    uint64
	onAppend func(models.ChatMessage)
}

func New(identity Identity, store HistoryStore) *Session {
	return &Session{identity: identity, store: store}
}

func (s *Session) Identity() Identity { return s.identity }

// Ready reports whether Save and Load can reach the store.
func (s *Session) Ready() bool {
	return s.store != nil && s.identity.Ready()
}

// OnAppend registers a callback run after every accepted append. It must be
// set before the session is shared.
func (s *Session) OnAppend(fn func(models.ChatMessage)) {
	s.onAppend = fn
}

// Epoch changes whenever the history is replaced or cleared.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) Append(msg models.ChatMessage) {
	s.mu.Lock()
	s.history = append(s.history, msg.Clone())
	s.mu.Unlock()

	s.notify(msg)
}

// AppendAt appends msg only if the history has not been replaced since epoch
// was read. It reports whether the message was kept.
func (s *Session) AppendAt(epoch uint64, msg models.ChatMessage) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.history = append(s.history, msg.Clone())
	s.mu.Unlock()

	s.notify(msg)
	return true
}

// Messages returns a copy of the history.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.history)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.epoch++
}

// Save writes the whole history under the identity's key.
func (s *Session) Save(ctx context.Context) error {
	if !s.Ready() {
		return ErrNotReady
	}

	s.mu.Lock()
	data, err := json.Marshal(nonNil(s.history))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if err := s.store.Put(ctx, s.identity.Key(), string(data)); err != nil {
		return &PersistError{Op: "save", Err: err}
	}
	return nil
}

// Load replaces the in-memory history with the stored one. A missing record
// yields an empty history.
func (s *Session) Load(ctx context.Context) ([]models.ChatMessage, error) {
	if !s.Ready() {
		return nil, ErrNotReady
	}

	rec, err := s.store.Get(ctx, s.identity.Key())
	if err != nil && !errors.Is(err, ErrNoRecord) {
		return nil, &PersistError{Op: "load", Err: err}
	}

	history, err := decodeHistory(rec.History)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.history = history
	s.epoch++
	out := cloneAll(history)
	s.mu.Unlock()

	return out, nil
}

func decodeHistory(blob string) ([]models.ChatMessage, error) {
	if blob == "" {
		return []models.ChatMessage{}, nil
	}
	var history []models.ChatMessage
	if err := json.Unmarshal([]byte(blob), &history); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nonNil(history), nil
}

func (s *Session) notify(msg models.ChatMessage) {
	if s.onAppend != nil {
		s.onAppend(msg.Clone())
	}
}

func cloneAll(in []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func nonNil(in []models.ChatMessage) []models.ChatMessage {
	if in == nil {
		return []models.ChatMessage{}
	}
	return in
}
