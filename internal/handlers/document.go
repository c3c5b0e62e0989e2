package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/middleware"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/services"
)

// URLResolver turns backend-relative references into client-usable URLs.
type URLResolver interface {
	ResolveURL(ref string) string
}

type DocumentHandler struct {
	registry *services.Registry
	docs     *services.DocumentService
	urls     URLResolver
}

func NewDocumentHandler(registry *services.Registry, docs *services.DocumentService, urls URLResolver) *DocumentHandler {
	return &DocumentHandler{registry: registry, docs: docs, urls: urls}
}

func (h *DocumentHandler) workspace(w http.ResponseWriter, r *http.Request) (*document.Workspace, bool) {
	st, err := h.registry.Open(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return st.Doc, true
}

func (h *DocumentHandler) writeDocument(w http.ResponseWriter, doc *document.Workspace) {
	writeJSON(w, http.StatusOK, services.ToDocumentResponse(doc.Snapshot()))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	doc.Update(document.Patch{
		Title:                req.Title,
		Body:                 req.Body,
		FrontCoverPrompt:     req.FrontCoverPrompt,
		BackCoverText:        req.BackCoverText,
		UserProvidedCoverURL: req.UserProvidedCoverURL,
	})
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Settings must be a JSON object", r))
		return
	}

	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	doc.ApplySettings(document.Configuration(partial))
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	doc.ResetSettings()
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) Format(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if _, err := h.docs.FormatScript(r.Context(), doc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) SuggestStyle(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if _, err := h.docs.SuggestStyle(r.Context(), doc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) CoverDescriptions(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if _, err := h.docs.GenerateCoverDescriptions(r.Context(), doc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}

	result, err := h.docs.BuildDocument(r.Context(), doc, services.BuildOptions{
		FormatWithAI:           req.FormatWithAI,
		SuggestStyle:           req.SuggestStyle,
		ForceCoverDescriptions: req.ForceCoverDescriptions,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateDocumentResponse{
		CoverURL:    result.CoverURL,
		DocumentURL: result.DocumentURL,
		DownloadURL: h.urls.ResolveURL(result.DocumentURL),
		Message:     result.StatusMessage,
	})
}

const maxManuscriptSize = 20 << 20

// Import replaces the body with the text of an uploaded manuscript.
func (h *DocumentHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxManuscriptSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read the uploaded file", r))
		return
	}

	text, err := services.ExtractManuscript(header.Filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	doc, ok := h.workspace(w, r)
	if !ok {
		return
	}
	doc.Update(document.Patch{Body: &text})
	h.writeDocument(w, doc)
}

func (h *DocumentHandler) ImportFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"formats": services.ManuscriptFormats})
}
