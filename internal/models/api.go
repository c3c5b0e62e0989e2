package models

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventChatMessage     = "chat_message"
	EventSettingsUpdated = "settings_updated"
	EventDocumentUpdated = "document_updated"
)

// DocumentResponse mirrors the live document of a studio session.
type DocumentResponse struct {
	Title                string         `json:"title"`
	Body                 string         `json:"body"`
	FrontCoverPrompt     string         `json:"front_cover_prompt"`
	BackCoverText        string         `json:"back_cover_text"`
	UserProvidedCoverURL string         `json:"user_provided_cover_url"`
	Settings             map[string]any `json:"settings"`
}

// UpdateDocumentRequest carries a partial document update; nil fields are
// left untouched.
type UpdateDocumentRequest struct {
	Title                *string `json:"title"`
	Body                 *string `json:"body"`
	FrontCoverPrompt     *string `json:"front_cover_prompt"`
	BackCoverText        *string `json:"back_cover_text"`
	UserProvidedCoverURL *string `json:"user_provided_cover_url"`
}

type GenerateDocumentRequest struct {
	FormatWithAI           bool `json:"format_with_ai"`
	SuggestStyle           bool `json:"suggest_style"`
	ForceCoverDescriptions bool `json:"force_cover_descriptions"`
}

type GenerateDocumentResponse struct {
	CoverURL    string `json:"cover_url"`
	DocumentURL string `json:"document_url"`
	DownloadURL string `json:"download_url"`
	Message     string `json:"message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
