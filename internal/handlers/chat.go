package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"bookcraft-backend/internal/middleware"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/services"
)

type ChatHandler struct {
	registry *services.Registry
	chat     *services.ChatService
}

func NewChatHandler(registry *services.Registry, chat *services.ChatService) *ChatHandler {
	return &ChatHandler{registry: registry, chat: chat}
}

func (h *ChatHandler) studio(w http.ResponseWriter, r *http.Request) (*services.Studio, bool) {
	st, err := h.registry.Open(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return nil, false
	}
	return st, true
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	st, ok := h.studio(w, r)
	if !ok {
		return
	}

	result, err := h.chat.Send(r.Context(), st, req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := models.SendMessageResponse{Messages: result.Messages}
	if resp.Messages == nil {
		resp.Messages = []models.ChatMessage{}
	}
	if result.DirectiveErr != nil {
		log.Printf("Directive failed for %s: %v", st.Identity, result.DirectiveErr)
		resp.Warning = result.DirectiveErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.ChatHistoryResponse{History: st.Chat.Messages()})
}

func (h *ChatHandler) SaveHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	if err := st.Chat.Save(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Chat history saved.",
		"messages": st.Chat.Len(),
	})
}

func (h *ChatHandler) LoadHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	history, err := st.Chat.Load(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatHistoryResponse{History: history})
}

func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.studio(w, r)
	if !ok {
		return
	}
	st.Chat.Clear()
	w.WriteHeader(http.StatusNoContent)
}
