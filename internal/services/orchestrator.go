package services

import (
	"context"
	"strings"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/metrics"
	"bookcraft-backend/internal/models"
)

// GenerationRequest is everything needed to render a book artifact.
type GenerationRequest struct {
	Title                string
	Body                 string
	FrontCoverPrompt     string
	BackCoverText        string
	UserProvidedCoverURL string
	Settings             document.Configuration
}

func RequestFromState(st document.State) GenerationRequest {
	return GenerationRequest{
		Title:                st.Title,
		Body:                 st.Body,
		FrontCoverPrompt:     st.FrontCoverPrompt,
		BackCoverText:        st.BackCoverText,
		UserProvidedCoverURL: st.UserProvidedCoverURL,
		Settings:             st.Settings,
	}
}

// GenerationResult is returned verbatim from the backend. DocumentURL may be
// relative to the backend.
type GenerationResult struct {
	CoverURL      string
	DocumentURL   string
	StatusMessage string
}

type Orchestrator struct {
	backend Backend
}

func NewOrchestrator(b Backend) *Orchestrator {
	return &Orchestrator{backend: b}
}

// Generate makes exactly one artifact-generation call. No retries.
func (o *Orchestrator) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if strings.TrimSpace(req.Body) == "" {
		return GenerationResult{}, ErrEmptyBody
	}

	settings := map[string]any(req.Settings.Clone())
	if settings == nil {
		settings = map[string]any{}
	}

	resp, err := o.backend.GenerateArtifact(ctx, models.ArtifactRequest{
		EbookTitle:           req.Title,
		BookScript:           req.Body,
		CoverPrompt:          req.FrontCoverPrompt,
		UserProvidedCoverURL: req.UserProvidedCoverURL,
		BackCoverText:        req.BackCoverText,
		Settings:             settings,
	})
	metrics.GenerationsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return GenerationResult{}, newGenerationError("generate", err)
	}

	return GenerationResult{
		CoverURL:      resp.CoverURL,
		DocumentURL:   resp.PDFURL,
		StatusMessage: resp.Message,
	}, nil
}
