package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookcraft-backend/internal/models"
)

type failingStore struct{ err error }

func (f *failingStore) Get(ctx context.Context, key string) (Record, error) { return Record{}, f.err }
func (f *failingStore) Put(ctx context.Context, key string, history string) error {
	return f.err
}

var alice = Identity{Tenant: "default-app-id", UserID: "alice"}

func TestIdentityKey(t *testing.T) {
	want := "artifacts/default-app-id/users/alice/chat_history/main_chat"
	if got := alice.Key(); got != want {
		t.Fatalf("expected key %q, got %q", want, got)
	}
	if (Identity{Tenant: "t"}).Ready() {
		t.Fatalf("identity without user must not be ready")
	}
}

func TestSession_SaveThenLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	s := New(alice, store)
	s.Append(models.UserMessage("draw a cat"))
	s.Append(models.AssistantMessage(models.Text("Image generated:"), models.Image("https://img/cat.png")))

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fresh := New(alice, store)
	fresh.Append(models.UserMessage("discarded on load"))

	got, err := fresh.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || fresh.Len() != 2 {
		t.Fatalf("expected 2 messages after load, got %d (session %d)", len(got), fresh.Len())
	}
	if got[1].Parts[1].Kind != models.PartImage || got[1].Parts[1].URL != "https://img/cat.png" {
		t.Fatalf("image part did not survive round trip: %+v", got[1])
	}
}

func TestSession_SaveEmptyHistoryThenLoad(t *testing.T) {
	store := NewMemoryStore()
	s := New(alice, store)
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, _ := store.Get(context.Background(), alice.Key())
	if rec.History != "[]" {
		t.Fatalf("expected empty array record, got %q", rec.History)
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}

	got, err := s.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}
}

func TestSession_LoadMissingRecordYieldsEmptyHistory(t *testing.T) {
	s := New(alice, NewMemoryStore())
	s.Append(models.UserMessage("hello"))

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 || s.Len() != 0 {
		t.Fatalf("expected history to be replaced by an empty one")
	}
}

func TestSession_NotReady(t *testing.T) {
	tests := []struct {
		name string
		s    *Session
	}{
		{"no store", New(alice, nil)},
		{"no user", New(Identity{Tenant: "default-app-id"}, NewMemoryStore())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.s.Append(models.UserMessage("kept"))
			if err := tc.s.Save(context.Background()); !errors.Is(err, ErrNotReady) {
				t.Fatalf("expected ErrNotReady from Save, got %v", err)
			}
			if _, err := tc.s.Load(context.Background()); !errors.Is(err, ErrNotReady) {
				t.Fatalf("expected ErrNotReady from Load, got %v", err)
			}
			if tc.s.Len() != 1 {
				t.Fatalf("history must be untouched")
			}
		})
	}
}

func TestSession_LoadCorruptRecord(t *testing.T) {
	store := NewMemoryStore()
	store.Put(context.Background(), alice.Key(), "{not json")

	s := New(alice, store)
	s.Append(models.UserMessage("kept"))
	if _, err := s.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("corrupt load must not replace history")
	}
}

func TestSession_LoadLegacyRole(t *testing.T) {
	store := NewMemoryStore()
	store.Put(context.Background(), alice.Key(), `[{"role":"model","parts":[{"text":"hi"}]}]`)

	got, err := New(alice, store).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got[0].Role != models.RoleAssistant {
		t.Fatalf("expected legacy role to load as assistant, got %q", got[0].Role)
	}
}

func TestSession_StoreFailureIsPersistError(t *testing.T) {
	boom := errors.New("connection refused")
	s := New(alice, &failingStore{err: boom})

	err := s.Save(context.Background())
	var pe *PersistError
	if !errors.As(err, &pe) || !errors.Is(err, boom) {
		t.Fatalf("expected PersistError wrapping store error, got %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.As(err, &pe) {
		t.Fatalf("expected PersistError from Load, got %v", err)
	}
}

func TestSession_MessagesAreCopies(t *testing.T) {
	s := New(alice, nil)
	s.Append(models.UserMessage("original"))

	msgs := s.Messages()
	msgs[0].Parts[0].Text = "mutated"

	if s.Messages()[0].Parts[0].Text != "original" {
		t.Fatalf("stored history was mutated through a returned copy")
	}
}

func TestSession_AppendAtDropsStaleMessages(t *testing.T) {
	s := New(alice, NewMemoryStore())
	epoch := s.Epoch()

	if !s.AppendAt(epoch, models.UserMessage("first")) {
		t.Fatalf("append at current epoch must succeed")
	}

	s.Clear()
	if s.AppendAt(epoch, models.AssistantMessage(models.Text("late reply"))) {
		t.Fatalf("append after clear must be dropped")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty history, got %d", s.Len())
	}

	epoch = s.Epoch()
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.AppendAt(epoch, models.UserMessage("late")) {
		t.Fatalf("append after load must be dropped")
	}
}

func TestSession_OnAppend(t *testing.T) {
	s := New(alice, nil)
	var seen []string
	s.OnAppend(func(m models.ChatMessage) { seen = append(seen, m.PlainText()) })

	s.Append(models.UserMessage("a"))
	s.AppendAt(s.Epoch(), models.UserMessage("b"))
	s.AppendAt(s.Epoch()+1, models.UserMessage("dropped"))

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestSession_SaveTimestampComesFromStore(t *testing.T) {
	stamp := time.Date(2030, 5, 1, 9, 30, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return stamp }

	s := New(alice, store)
	s.Append(models.UserMessage("hello"))
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, _ := store.Get(context.Background(), alice.Key())
	if !rec.UpdatedAt.Equal(stamp) {
		t.Fatalf("expected store clock %v, got %v", stamp, rec.UpdatedAt)
	}
}
