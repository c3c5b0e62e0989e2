package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/session"
)

const (
	defaultBookTitle   = "My Smart E-Book"
	historyLoadTimeout = 15 * time.Second
)

// Publisher pushes events to the connected clients of one user.
type Publisher interface {
	Publish(userKey string, msg models.WSMessage)
}

// Studio is the live state of one user: the chat and the book being built.
type Studio struct {
	Identity session.Identity
	Chat     *session.Session
	Doc      *document.Workspace

	turnMu   sync.Mutex
	lastUsed atomic.Int64
}

// Registry keeps one Studio per identity for the life of the process.
type Registry struct {
	store     session.HistoryStore
	publisher Publisher

	mu      sync.RWMutex
	studios map[string]*Studio
	group   singleflight.Group

	now func() time.Time
}

func NewRegistry(store session.HistoryStore, publisher Publisher) *Registry {
	return &Registry{
		store:     store,
		publisher: publisher,
		studios:   make(map[string]*Studio),
		now:       time.Now,
	}
}

// Open returns the studio of id, creating it on first use. A new studio
// loads its saved history when persistence is available. An undecodable
// history is logged and leaves the history empty; a store failure is
// returned and nothing is cached, so the next request retries the load.
func (r *Registry) Open(ctx context.Context, id session.Identity) (*Studio, error) {
	key := id.Key()

	r.mu.RLock()
	st, ok := r.studios[key]
	r.mu.RUnlock()
	if ok {
		st.lastUsed.Store(r.now().UnixNano())
		return st, nil
	}

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		existing, ok := r.studios[key]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		st := r.newStudio(id)
		if err := r.loadHistory(ctx, st); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.studios[key] = st
		r.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	st = v.(*Studio)
	st.lastUsed.Store(r.now().UnixNano())
	return st, nil
}

// loadHistory ignores the caller's cancellation; the studio outlives the
// request that opened it.
func (r *Registry) loadHistory(ctx context.Context, st *Studio) error {
	if !st.Chat.Ready() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyLoadTimeout)
	defer cancel()

	_, err := st.Chat.Load(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrCorrupt):
		log.Printf("⚠ Could not load chat history for %s: %v", st.Identity, err)
		return nil
	default:
		log.Printf("✗ Chat history store failed for %s: %v", st.Identity, err)
		return err
	}
}

// Sweep drops studios not opened for idle and returns how many were
// dropped. A studio with a turn in flight is kept.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for key, st := range r.studios {
		if st.lastUsed.Load() > cutoff || !st.turnMu.TryLock() {
			continue
		}
		delete(r.studios, key)
		st.turnMu.Unlock()
		dropped++
	}
	return dropped
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, idle, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(idle); n > 0 {
					log.Printf("Dropped %d idle studios", n)
				}
			}
		}
	}()
}

func (r *Registry) newStudio(id session.Identity) *Studio {
	st := &Studio{
		Identity: id,
		Chat:     session.New(id, r.store),
		Doc:      document.NewWorkspace(defaultBookTitle),
	}
	if r.publisher == nil {
		return st
	}

	userKey := id.String()
	st.Chat.OnAppend(func(msg models.ChatMessage) {
		r.publisher.Publish(userKey, models.WSMessage{Type: models.EventChatMessage, Payload: msg})
	})
	st.Doc.Observe(func(ev document.Event) {
		r.publisher.Publish(userKey, models.WSMessage{Type: string(ev.Type), Payload: ToDocumentResponse(ev.State)})
	})
	return st
}

// ToDocumentResponse converts a workspace snapshot to its API shape.
func ToDocumentResponse(st document.State) models.DocumentResponse {
	settings := map[string]any(st.Settings.Clone())
	if settings == nil {
		settings = map[string]any{}
	}
	return models.DocumentResponse{
		Title:                st.Title,
		Body:                 st.Body,
		FrontCoverPrompt:     st.FrontCoverPrompt,
		BackCoverText:        st.BackCoverText,
		UserProvidedCoverURL: st.UserProvidedCoverURL,
		Settings:             settings,
	}
}
