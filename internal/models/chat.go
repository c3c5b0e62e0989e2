package models

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// legacyRoleModel is how histories written by the first web client
	// labelled AI turns.
	legacyRoleModel Role = "model"
)

type PartKind int

const (
	PartText PartKind = iota
	PartImage
)

// ContentPart is either a text fragment or an image reference.
type ContentPart struct {
	Kind PartKind
	Text string
	URL  string
}

func Text(s string) ContentPart {
	return ContentPart{Kind: PartText, Text: s}
}

func Image(url string) ContentPart {
	return ContentPart{Kind: PartImage, URL: url}
}

type contentPartJSON struct {
	Text     *string `json:"text,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func (p ContentPart) MarshalJSON() ([]byte, error) {
	if p.Kind == PartImage {
		return json.Marshal(contentPartJSON{ImageURL: &p.URL})
	}
	return json.Marshal(contentPartJSON{Text: &p.Text})
}

func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var raw contentPartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ImageURL != nil:
		*p = Image(*raw.ImageURL)
	case raw.Text != nil:
		*p = Text(*raw.Text)
	default:
		return fmt.Errorf("content part has neither text nor imageUrl")
	}
	return nil
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role  Role          `json:"role"`
	Parts []ContentPart `json:"parts"`
}

func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias ChatMessage
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Role {
	case RoleUser, RoleAssistant:
	case legacyRoleModel:
		raw.Role = RoleAssistant
	default:
		return fmt.Errorf("unknown chat role %q", raw.Role)
	}
	*m = ChatMessage(raw)
	return nil
}

// UserMessage builds a single-part user message.
func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: RoleUser, Parts: []ContentPart{Text(text)}}
}

// AssistantMessage builds an assistant message from the given parts.
func AssistantMessage(parts ...ContentPart) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Parts: parts}
}

// Clone returns a deep copy so callers cannot mutate stored history.
func (m ChatMessage) Clone() ChatMessage {
	parts := make([]ContentPart, len(m.Parts))
	copy(parts, m.Parts)
	return ChatMessage{Role: m.Role, Parts: parts}
}

// PlainText joins the text parts of a message.
func (m ChatMessage) PlainText() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind != PartText {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// SendMessageRequest is the payload of the studio chat endpoint.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse lists the messages appended by one turn.
type SendMessageResponse struct {
	Messages []ChatMessage `json:"messages"`
	Warning  string        `json:"warning,omitempty"`
}

// ChatHistoryResponse is returned by history reads and loads.
type ChatHistoryResponse struct {
	History []ChatMessage `json:"history"`
}
