package services

import (
	"context"
	"sync"

	"bookcraft-backend/internal/models"
)

// stubBackend records calls and answers from its fields.
type stubBackend struct {
	mu    sync.Mutex
	calls []string

	chatReply   string
	chatErr     error
	chatHistory []models.ChatMessage
	chatMessage string

	formatted   string
	formatErr   error
	formatInput string

	settings     map[string]any
	styleErr     error
	styleRequest string

	covers       models.CoverDescriptions
	coversErr    error
	coversInput  string
	artifact     models.ArtifactResponse
	artifactErr  error
	artifactReqs []models.ArtifactRequest
}

func (b *stubBackend) record(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, op)
}

func (b *stubBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *stubBackend) Chat(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	b.record("chat")
	b.chatMessage = message
	b.chatHistory = history
	return b.chatReply, b.chatErr
}

func (b *stubBackend) FormatText(ctx context.Context, raw string) (string, error) {
	b.record("format")
	b.formatInput = raw
	return b.formatted, b.formatErr
}

func (b *stubBackend) SuggestStyle(ctx context.Context, description string) (map[string]any, error) {
	b.record("suggest_style")
	b.styleRequest = description
	return b.settings, b.styleErr
}

func (b *stubBackend) CoverDescriptions(ctx context.Context, content string) (models.CoverDescriptions, error) {
	b.record("cover_descriptions")
	b.coversInput = content
	return b.covers, b.coversErr
}

func (b *stubBackend) GenerateArtifact(ctx context.Context, req models.ArtifactRequest) (models.ArtifactResponse, error) {
	b.record("generate")
	b.artifactReqs = append(b.artifactReqs, req)
	return b.artifact, b.artifactErr
}

type sliceTranscript struct {
	msgs []models.ChatMessage
}

func (t *sliceTranscript) Append(msg models.ChatMessage) {
	t.msgs = append(t.msgs, msg)
}
