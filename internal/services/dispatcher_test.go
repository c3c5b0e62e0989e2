package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bookcraft-backend/internal/backend"
	"bookcraft-backend/internal/directive"
	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/models"
)

// orderedDoc wraps a workspace and logs its mutations into the same slice the
// transcript writes to, so the order of effects can be asserted.
type orderedDoc struct {
	*document.Workspace
	log *[]string
}

func (d orderedDoc) ApplySettings(p document.Configuration) document.Configuration {
	*d.log = append(*d.log, "apply_settings")
	return d.Workspace.ApplySettings(p)
}

type orderedTranscript struct {
	log *[]string
}

func (t orderedTranscript) Append(msg models.ChatMessage) {
	*t.log = append(*t.log, "notice:"+msg.PlainText())
}

func TestDispatch_ImageRequest(t *testing.T) {
	b := &stubBackend{artifact: models.ArtifactResponse{CoverURL: "https://img/cat.png"}}
	tr := &sliceTranscript{}

	out, err := NewDispatcher(b).Dispatch(context.Background(),
		directive.Directive{Kind: directive.ImageRequest, Payload: "a flying cat"},
		document.NewWorkspace("Book"), tr)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(out) != 2 || len(tr.msgs) != 2 {
		t.Fatalf("expected progress and outcome notices, got %d", len(tr.msgs))
	}

	req := b.artifactReqs[0]
	if req.EbookTitle != "AI Generated Image" || req.BookScript != "AI image request" || req.CoverPrompt != "a flying cat" {
		t.Fatalf("unexpected artifact request %+v", req)
	}
	if len(req.Settings) != 0 {
		t.Fatalf("expected empty settings, got %v", req.Settings)
	}

	last := tr.msgs[1]
	if last.Role != models.RoleAssistant || len(last.Parts) != 2 || last.Parts[1].Kind != models.PartImage || last.Parts[1].URL != "https://img/cat.png" {
		t.Fatalf("unexpected outcome message %+v", last)
	}
}

func TestDispatch_StyleRequestAppliesSettingsBeforeNotice(t *testing.T) {
	b := &stubBackend{settings: map[string]any{"fontSize": "14pt"}}
	var events []string
	doc := orderedDoc{Workspace: document.NewWorkspace("Book"), log: &events}

	_, err := NewDispatcher(b).Dispatch(context.Background(),
		directive.Directive{Kind: directive.StyleRequest, Payload: "a calm poetry book"},
		doc, orderedTranscript{log: &events})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	if len(events) != 3 || events[1] != "apply_settings" || !strings.HasPrefix(events[2], "notice:") {
		t.Fatalf("expected progress, apply, outcome; got %v", events)
	}
	if b.styleRequest != "a calm poetry book" {
		t.Fatalf("expected hint to be sent, got %q", b.styleRequest)
	}
	if got := doc.Snapshot().Settings["fontSize"]; got != "14pt" {
		t.Fatalf("expected merged fontSize, got %v", got)
	}
}

func TestDispatch_StyleRequestWithoutHintUsesBodyPrefix(t *testing.T) {
	b := &stubBackend{settings: map[string]any{}}
	doc := document.NewWorkspace("Book")
	doc.ReplaceBody(strings.Repeat("é", 800))

	NewDispatcher(b).Dispatch(context.Background(), directive.Directive{Kind: directive.StyleRequest}, doc, &sliceTranscript{})

	if n := len([]rune(b.styleRequest)); n != 500 {
		t.Fatalf("expected a 500 character description, got %d", n)
	}
}

func TestDispatch_FormatRequest(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		body      string
		wantInput string
	}{
		{"payload given", "Chapter 1", "old body", "Chapter 1"},
		{"empty payload uses body", "", "old body", "old body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &stubBackend{formatted: "<h1>Chapter 1</h1>"}
			doc := document.NewWorkspace("Book")
			doc.ReplaceBody(tc.body)

			if _, err := NewDispatcher(b).Dispatch(context.Background(),
				directive.Directive{Kind: directive.FormatRequest, Payload: tc.payload}, doc, &sliceTranscript{}); err != nil {
				t.Fatalf("Dispatch failed: %v", err)
			}
			if b.formatInput != tc.wantInput {
				t.Fatalf("expected input %q, got %q", tc.wantInput, b.formatInput)
			}
			if doc.Snapshot().Body != "<h1>Chapter 1</h1>" {
				t.Fatalf("body was not replaced")
			}
		})
	}
}

func TestDispatch_FailureAppendsOneFailureNotice(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend error", &backend.BackendError{Op: "format", Status: 500, Message: "quota"}, directiveNotices[directive.FormatRequest].failed},
		{"network error", &backend.NetworkError{Op: "format", Err: errors.New("refused")}, directiveNotices[directive.FormatRequest].unreachable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := &stubBackend{formatErr: tc.err}
			doc := document.NewWorkspace("Book")
			doc.ReplaceBody("original")
			tr := &sliceTranscript{}

			_, err := NewDispatcher(b).Dispatch(context.Background(),
				directive.Directive{Kind: directive.FormatRequest, Payload: "x"}, doc, tr)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected backend error to be returned, got %v", err)
			}
			if len(tr.msgs) != 2 || tr.msgs[1].PlainText() != tc.want {
				t.Fatalf("unexpected notices %+v", tr.msgs)
			}
			if doc.Snapshot().Body != "original" {
				t.Fatalf("body must be untouched on failure")
			}
		})
	}
}

func TestDispatch_ImageWithoutCoverURLFails(t *testing.T) {
	b := &stubBackend{}
	tr := &sliceTranscript{}

	_, err := NewDispatcher(b).Dispatch(context.Background(),
		directive.Directive{Kind: directive.ImageRequest, Payload: "x"}, document.NewWorkspace("Book"), tr)
	var be *backend.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if len(tr.msgs) != 2 {
		t.Fatalf("expected two notices, got %d", len(tr.msgs))
	}
}
