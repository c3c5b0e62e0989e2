package services

import (
	"context"
	"strings"

	"bookcraft-backend/internal/directive"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/session"
)

// TurnResult lists the messages one turn added to the history. DirectiveErr
// is set when a directive in the reply failed; the turn itself succeeded.
type TurnResult struct {
	Messages     []models.ChatMessage
	DirectiveErr error
}

type ChatService struct {
	backend    Backend
	dispatcher *Dispatcher
}

func NewChatService(b Backend, d *Dispatcher) *ChatService {
	return &ChatService{backend: b, dispatcher: d}
}

// Send runs one chat turn. Turns of the same studio are queued. If the
// history is cleared or reloaded while the turn is in flight, its remaining
// messages are dropped and a directive in the reply is not run.
func (s *ChatService) Send(ctx context.Context, st *Studio, text string) (TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, ErrEmptyInput
	}

	st.turnMu.Lock()
	defer st.turnMu.Unlock()

	tr := &turnTranscript{s: st.Chat, epoch: st.Chat.Epoch()}
	previous := st.Chat.Messages()

	tr.Append(models.UserMessage(text))

	reply, err := s.backend.Chat(ctx, text, previous)
	if err != nil {
		return TurnResult{Messages: tr.kept}, err
	}
	result := TurnResult{}
	if !tr.keep(models.AssistantMessage(models.Text(reply))) {
		// History was cleared or reloaded; the reply and its directive are void.
		result.Messages = tr.kept
		return result, nil
	}

	if d, ok := directive.Parse(reply); ok {
		_, result.DirectiveErr = s.dispatcher.Dispatch(ctx, d, st.Doc, tr)
	}
	result.Messages = tr.kept
	return result, nil
}

// turnTranscript appends on behalf of one turn and remembers what the
// session accepted.
type turnTranscript struct {
	s     *session.Session
	epoch uint64
	kept  []models.ChatMessage
}

func (t *turnTranscript) Append(msg models.ChatMessage) {
	t.keep(msg)
}

// keep appends msg and reports whether the session accepted it.
func (t *turnTranscript) keep(msg models.ChatMessage) bool {
	if !t.s.AppendAt(t.epoch, msg) {
		return false
	}
	t.kept = append(t.kept, msg)
	return true
}
