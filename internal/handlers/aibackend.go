package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/services"
)

// AIModel is the model work behind the AI backend endpoints.
type AIModel interface {
	Chat(ctx context.Context, message string, history []models.ChatMessage) (string, error)
	FormatScript(ctx context.Context, raw string) (string, error)
	SuggestStyle(ctx context.Context, description string) (map[string]any, error)
	CoverDescriptions(ctx context.Context, content string) (models.CoverDescriptions, error)
}

// AIBackendHandler serves the AI backend contract. Failures use the flat
// {"error": "..."} body the studio client expects.
type AIBackendHandler struct {
	ai    AIModel
	books *services.BookService
}

func NewAIBackendHandler(ai AIModel, books *services.BookService) *AIBackendHandler {
	return &AIBackendHandler{ai: ai, books: books}
}

func backendFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.BackendErrorBody{Error: message})
}

func (h *AIBackendHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.BackendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		backendFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		backendFailure(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := h.ai.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		log.Printf("Chat failed: %v", err)
		backendFailure(w, http.StatusInternalServerError, "Failed to get a response from the AI")
		return
	}
	writeJSON(w, http.StatusOK, models.BackendChatResponse{Response: reply})
}

func (h *AIBackendHandler) FormatScript(w http.ResponseWriter, r *http.Request) {
	var req models.FormatScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		backendFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.RawScript) == "" {
		backendFailure(w, http.StatusBadRequest, "No script provided for formatting")
		return
	}

	formatted, err := h.ai.FormatScript(r.Context(), req.RawScript)
	if err != nil {
		log.Printf("Script formatting failed: %v", err)
		backendFailure(w, http.StatusInternalServerError, "Failed to format the script")
		return
	}
	writeJSON(w, http.StatusOK, models.FormatScriptResponse{FormattedHTML: formatted})
}

func (h *AIBackendHandler) SuggestStyle(w http.ResponseWriter, r *http.Request) {
	var req models.SuggestStyleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		backendFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.BookDescription) == "" {
		backendFailure(w, http.StatusBadRequest, "Please provide a book description")
		return
	}

	settings, err := h.ai.SuggestStyle(r.Context(), req.BookDescription)
	if err != nil {
		log.Printf("Style suggestion failed: %v", err)
		backendFailure(w, http.StatusInternalServerError, "Failed to suggest a style")
		return
	}
	writeJSON(w, http.StatusOK, models.SuggestStyleResponse{Settings: settings})
}

func (h *AIBackendHandler) CoverDescriptions(w http.ResponseWriter, r *http.Request) {
	var req models.CoverDescriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		backendFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.BookContent) == "" {
		backendFailure(w, http.StatusBadRequest, "No book content provided")
		return
	}

	covers, err := h.ai.CoverDescriptions(r.Context(), req.BookContent)
	if err != nil {
		log.Printf("Cover descriptions failed: %v", err)
		backendFailure(w, http.StatusInternalServerError, "Failed to generate cover descriptions")
		return
	}
	writeJSON(w, http.StatusOK, covers)
}

func (h *AIBackendHandler) GenerateBook(w http.ResponseWriter, r *http.Request) {
	var req models.ArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		backendFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.books.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmptyBody) {
			backendFailure(w, http.StatusBadRequest, "Book script is required")
			return
		}
		log.Printf("Book generation failed: %v", err)
		backendFailure(w, http.StatusInternalServerError, "Failed to generate the book")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AIBackendHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	path, err := h.books.Path(name)
	if err != nil {
		backendFailure(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, path)
}
