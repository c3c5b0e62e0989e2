package services

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"bookcraft-backend/internal/backend"
	"bookcraft-backend/internal/directive"
	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/metrics"
	"bookcraft-backend/internal/models"
)

const (
	placeholderImageTitle = "AI Generated Image"
	placeholderImageBody  = "AI image request"

	styleDescriptionLimit = 500
)

// Backend is the subset of the AI backend the studio services call.
type Backend interface {
	Chat(ctx context.Context, message string, history []models.ChatMessage) (string, error)
	FormatText(ctx context.Context, raw string) (string, error)
	SuggestStyle(ctx context.Context, description string) (map[string]any, error)
	CoverDescriptions(ctx context.Context, content string) (models.CoverDescriptions, error)
	GenerateArtifact(ctx context.Context, req models.ArtifactRequest) (models.ArtifactResponse, error)
}

// DocumentSurface is what a directive may read from and change in the live
// document.
type DocumentSurface interface {
	Snapshot() document.State
	ApplySettings(partial document.Configuration) document.Configuration
	ReplaceBody(markup string)
}

// Transcript receives the assistant notices a directive produces.
type Transcript interface {
	Append(msg models.ChatMessage)
}

type notices struct {
	progress, success, failed, unreachable string
}

var directiveNotices = map[directive.Kind]notices{
	directive.ImageRequest: {
		progress:    "Generating the image you asked for...",
		success:     "Image generated:",
		failed:      "Sorry, the image could not be generated.",
		unreachable: "An error occurred while trying to generate the image.",
	},
	directive.StyleRequest: {
		progress:    "Suggesting and applying design settings...",
		success:     "New design settings were suggested and applied to the book.",
		failed:      "Sorry, design settings could not be suggested.",
		unreachable: "An error occurred while trying to suggest design settings.",
	},
	directive.FormatRequest: {
		progress:    "Formatting the text with AI...",
		success:     "The text was formatted and updated in the book.",
		failed:      "Sorry, the text could not be formatted.",
		unreachable: "An error occurred while trying to format the text.",
	},
}

type Dispatcher struct {
	backend Backend
}

func NewDispatcher(b Backend) *Dispatcher {
	return &Dispatcher{backend: b}
}

// Dispatch executes one directive. It appends a progress notice before the
// backend call and one outcome notice after it, and returns the messages it
// appended. A backend failure is reported through a failure notice and is
// also returned so the caller can surface it as a warning.
func (d *Dispatcher) Dispatch(ctx context.Context, dir directive.Directive, doc DocumentSurface, transcript Transcript) ([]models.ChatMessage, error) {
	n, ok := directiveNotices[dir.Kind]
	if !ok {
		return nil, nil
	}

	var out []models.ChatMessage
	emit := func(msg models.ChatMessage) {
		transcript.Append(msg)
		out = append(out, msg)
	}

	emit(models.AssistantMessage(models.Text(n.progress)))

	var err error
	switch dir.Kind {
	case directive.ImageRequest:
		var coverURL string
		coverURL, err = d.generateImage(ctx, dir.Payload)
		if err == nil {
			emit(models.AssistantMessage(models.Text(n.success), models.Image(coverURL)))
		}
	case directive.StyleRequest:
		err = d.applyStyle(ctx, dir.Payload, doc)
		if err == nil {
			emit(models.AssistantMessage(models.Text(n.success)))
		}
	case directive.FormatRequest:
		err = d.formatBody(ctx, dir.Payload, doc)
		if err == nil {
			emit(models.AssistantMessage(models.Text(n.success)))
		}
	}

	metrics.DirectivesTotal.WithLabelValues(dir.Kind.String(), metrics.Outcome(err)).Inc()
	if err == nil {
		return out, nil
	}

	log.Printf("%s directive failed: %v", dir.Kind, err)
	var ne *backend.NetworkError
	if errors.As(err, &ne) {
		emit(models.AssistantMessage(models.Text(n.unreachable)))
	} else {
		emit(models.AssistantMessage(models.Text(n.failed)))
	}
	return out, err
}

func (d *Dispatcher) generateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := d.backend.GenerateArtifact(ctx, models.ArtifactRequest{
		EbookTitle:  placeholderImageTitle,
		BookScript:  placeholderImageBody,
		CoverPrompt: prompt,
		Settings:    map[string]any{},
	})
	if err != nil {
		return "", err
	}
	if resp.CoverURL == "" {
		return "", &backend.BackendError{Op: "generate", Status: http.StatusOK, Message: "response carried no coverUrl"}
	}
	return resp.CoverURL, nil
}

func (d *Dispatcher) applyStyle(ctx context.Context, hint string, doc DocumentSurface) error {
	description := hint
	if description == "" {
		description = truncateRunes(doc.Snapshot().Body, styleDescriptionLimit)
	}
	settings, err := d.backend.SuggestStyle(ctx, description)
	if err != nil {
		return err
	}
	doc.ApplySettings(document.Configuration(settings))
	return nil
}

func (d *Dispatcher) formatBody(ctx context.Context, raw string, doc DocumentSurface) error {
	text := raw
	if text == "" {
		text = doc.Snapshot().Body
	}
	formatted, err := d.backend.FormatText(ctx, text)
	if err != nil {
		return err
	}
	doc.ReplaceBody(formatted)
	return nil
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
