package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoRecord is returned by a HistoryStore when nothing is stored at a key.
var ErrNoRecord = errors.New("no history record")

// Record is the persisted form of a history: the serialised message list and
// the time the store wrote it.
type Record struct {
	History   string    `json:"history"`
	UpdatedAt time.Time `json:"timestamp"`
}

// HistoryStore persists serialised histories. Put assigns the record's
// timestamp from the store's own clock.
type HistoryStore interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, history string) error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return Record{}, ErrNoRecord
	}
	return rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, history string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = Record{History: history, UpdatedAt: s.now().UTC()}
	return nil
}
