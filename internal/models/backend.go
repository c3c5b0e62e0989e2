package models

// Wire types of the AI backend contract. Field names are fixed by the
// deployed backend and must not be renamed.

type BackendChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

type BackendChatResponse struct {
	Response string `json:"response"`
}

type FormatScriptRequest struct {
	RawScript string `json:"rawScript"`
}

type FormatScriptResponse struct {
	FormattedHTML string `json:"formattedHtml"`
}

type SuggestStyleRequest struct {
	BookDescription string `json:"bookDescription"`
}

type SuggestStyleResponse struct {
	Settings map[string]any `json:"settings"`
}

type CoverDescriptionsRequest struct {
	BookContent string `json:"bookContent"`
}

type CoverDescriptions struct {
	FrontCoverPrompt string `json:"front_cover_prompt"`
	BackCoverText    string `json:"back_cover_text"`
}

type ArtifactRequest struct {
	EbookTitle           string         `json:"ebookTitle"`
	BookScript           string         `json:"bookScript"`
	CoverPrompt          string         `json:"coverPrompt"`
	UserProvidedCoverURL string         `json:"userProvidedCoverUrl"`
	BackCoverText        string         `json:"backCoverText"`
	Settings             map[string]any `json:"settings"`
}

type ArtifactResponse struct {
	CoverURL string `json:"coverUrl"`
	PDFURL   string `json:"pdfUrl"`
	Message  string `json:"message"`
}

// BackendErrorBody is the failure payload of every backend operation.
type BackendErrorBody struct {
	Error string `json:"error"`
}

