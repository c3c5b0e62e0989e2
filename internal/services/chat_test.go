package services

import (
	"context"
	"errors"
	"testing"

	"bookcraft-backend/internal/backend"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/session"
)

func newTestStudio(t *testing.T, store session.HistoryStore) *Studio {
	t.Helper()
	st, err := NewRegistry(store, nil).Open(context.Background(), session.Identity{Tenant: "default-app-id", UserID: "u1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return st
}

func TestSend_PlainReply(t *testing.T) {
	b := &stubBackend{chatReply: "Here are some ideas."}
	svc := NewChatService(b, NewDispatcher(b))
	st := newTestStudio(t, nil)
	st.Chat.Append(models.UserMessage("earlier"))

	res, err := svc.Send(context.Background(), st, "help me plan a book")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(res.Messages) != 2 || res.Messages[1].PlainText() != "Here are some ideas." {
		t.Fatalf("unexpected turn messages %+v", res.Messages)
	}
	if b.chatMessage != "help me plan a book" || len(b.chatHistory) != 1 || b.chatHistory[0].PlainText() != "earlier" {
		t.Fatalf("backend must receive the previous history only, got %+v", b.chatHistory)
	}
	if st.Chat.Len() != 3 {
		t.Fatalf("expected 3 messages in history, got %d", st.Chat.Len())
	}
}

func TestSend_EmptyInputMakesNoCall(t *testing.T) {
	b := &stubBackend{}
	st := newTestStudio(t, nil)

	_, err := NewChatService(b, NewDispatcher(b)).Send(context.Background(), st, "   \n")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if b.callCount() != 0 || st.Chat.Len() != 0 {
		t.Fatalf("empty input must not call the backend or touch history")
	}
}

func TestSend_BackendFailureKeepsUserMessage(t *testing.T) {
	netErr := &backend.NetworkError{Op: "chat", Err: errors.New("refused")}
	b := &stubBackend{chatErr: netErr}
	st := newTestStudio(t, nil)

	res, err := NewChatService(b, NewDispatcher(b)).Send(context.Background(), st, "hi")
	if !errors.Is(err, netErr) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(res.Messages) != 1 || st.Chat.Len() != 1 || st.Chat.Messages()[0].Role != models.RoleUser {
		t.Fatalf("user message must stay in history")
	}
}

func TestSend_DirectiveIsDispatched(t *testing.T) {
	b := &stubBackend{
		chatReply: "APPLY_SETTINGS: warm and cosy",
		settings:  map[string]any{"h1Color": "#aa5500"},
	}
	st := newTestStudio(t, nil)

	res, err := NewChatService(b, NewDispatcher(b)).Send(context.Background(), st, "make it warm")
	if err != nil || res.DirectiveErr != nil {
		t.Fatalf("Send failed: %v / %v", err, res.DirectiveErr)
	}
	// user, reply, progress, outcome
	if len(res.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(res.Messages))
	}
	if st.Doc.Snapshot().Settings["h1Color"] != "#aa5500" {
		t.Fatalf("settings were not applied")
	}
}

func TestSend_DirectiveFailureIsAWarning(t *testing.T) {
	b := &stubBackend{
		chatReply: "FORMAT_SCRIPT: raw",
		formatErr: &backend.BackendError{Op: "format", Status: 500, Message: "boom"},
	}
	st := newTestStudio(t, nil)

	res, err := NewChatService(b, NewDispatcher(b)).Send(context.Background(), st, "format it")
	if err != nil {
		t.Fatalf("directive failure must not fail the turn: %v", err)
	}
	if res.DirectiveErr == nil {
		t.Fatalf("expected directive error to be reported")
	}
	if len(res.Messages) != 4 {
		t.Fatalf("expected user, reply, progress and failure notice, got %d", len(res.Messages))
	}
}

// clearingBackend clears the studio history while the chat call is in flight.
type clearingBackend struct {
	stubBackend
	st *Studio
}

func (b *clearingBackend) Chat(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	b.st.Chat.Clear()
	return b.chatReply, nil
}

func TestSend_ClearDuringTurnDropsLateMessages(t *testing.T) {
	st := newTestStudio(t, nil)
	b := &clearingBackend{st: st}
	b.chatReply = "APPLY_SETTINGS: dark"
	b.settings = map[string]any{"textColor": "#fff"}
	before := st.Doc.Snapshot().Settings["textColor"]

	res, err := NewChatService(b, NewDispatcher(b)).Send(context.Background(), st, "hi")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if st.Chat.Len() != 0 {
		t.Fatalf("expected cleared history to stay empty, got %d", st.Chat.Len())
	}
	if len(res.Messages) != 1 {
		t.Fatalf("only the user message was accepted before the clear, got %d", len(res.Messages))
	}
	if res.DirectiveErr != nil {
		t.Fatalf("dropped reply must not be dispatched, got %v", res.DirectiveErr)
	}
	if b.callCount() != 0 {
		t.Fatalf("dropped directive must not call the backend, got %v", b.calls)
	}
	if got := st.Doc.Snapshot().Settings["textColor"]; got != before {
		t.Fatalf("dropped directive changed textColor to %v", got)
	}
}
