package services

import (
	"context"
	"strings"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/models"
)

const (
	suggestStyleLimit      = 1000
	coverDescriptionsLimit = 5000
)

// BuildOptions selects the optional steps of BuildDocument.
type BuildOptions struct {
	FormatWithAI           bool
	SuggestStyle           bool
	ForceCoverDescriptions bool
}

// DocumentService runs the document operations of the book editor against a
// workspace.
type DocumentService struct {
	backend      Backend
	orchestrator *Orchestrator
}

func NewDocumentService(b Backend, o *Orchestrator) *DocumentService {
	return &DocumentService{backend: b, orchestrator: o}
}

// SuggestStyle describes the book by the start of its body, or its title,
// and merges the suggested settings into the configuration.
func (s *DocumentService) SuggestStyle(ctx context.Context, doc *document.Workspace) (document.Configuration, error) {
	st := doc.Snapshot()
	description := truncateRunes(st.Body, suggestStyleLimit)
	if description == "" {
		description = strings.TrimSpace(st.Title)
	}
	if description == "" {
		return nil, ErrEmptyInput
	}

	settings, err := s.backend.SuggestStyle(ctx, description)
	if err != nil {
		return nil, err
	}
	return doc.ApplySettings(document.Configuration(settings)), nil
}

func (s *DocumentService) FormatScript(ctx context.Context, doc *document.Workspace) (string, error) {
	body := doc.Snapshot().Body
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyInput
	}

	formatted, err := s.backend.FormatText(ctx, body)
	if err != nil {
		return "", err
	}
	doc.ReplaceBody(formatted)
	return formatted, nil
}

func (s *DocumentService) GenerateCoverDescriptions(ctx context.Context, doc *document.Workspace) (models.CoverDescriptions, error) {
	st := doc.Snapshot()
	content := truncateRunes(st.Body, coverDescriptionsLimit)
	if content == "" {
		content = strings.TrimSpace(st.Title)
	}
	if content == "" {
		return models.CoverDescriptions{}, ErrEmptyInput
	}

	covers, err := s.backend.CoverDescriptions(ctx, content)
	if err != nil {
		return models.CoverDescriptions{}, err
	}
	doc.SetCoverTexts(covers.FrontCoverPrompt, covers.BackCoverText)
	return covers, nil
}

// BuildDocument runs the full pipeline: optional reformat, optional style
// suggestion, cover descriptions when the book has no cover material (or
// when forced), then artifact generation. The first failing step aborts.
func (s *DocumentService) BuildDocument(ctx context.Context, doc *document.Workspace, opts BuildOptions) (GenerationResult, error) {
	if strings.TrimSpace(doc.Snapshot().Body) == "" {
		return GenerationResult{}, ErrEmptyBody
	}

	if opts.FormatWithAI {
		if _, err := s.FormatScript(ctx, doc); err != nil {
			return GenerationResult{}, newGenerationError("format", err)
		}
	}

	if opts.SuggestStyle {
		if _, err := s.SuggestStyle(ctx, doc); err != nil {
			return GenerationResult{}, newGenerationError("suggest_style", err)
		}
	}

	st := doc.Snapshot()
	needsCovers := st.FrontCoverPrompt == "" && st.BackCoverText == "" && st.UserProvidedCoverURL == ""
	if needsCovers || opts.ForceCoverDescriptions {
		if _, err := s.GenerateCoverDescriptions(ctx, doc); err != nil {
			return GenerationResult{}, newGenerationError("cover_descriptions", err)
		}
	}

	return s.orchestrator.Generate(ctx, RequestFromState(doc.Snapshot()))
}
