package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/metrics"
	"bookcraft-backend/internal/models"
)

const (
	formatInputLimit      = 5000
	styleDescriptionInput = 2000
	coverContentInput     = 4000
	coverPromptInput      = 10000

	fallbackCoverPrompt = "A beautiful abstract book cover with subtle colors."
)

const chatInstruction = `You are the assistant of an e-book studio. Help the user plan, write and design their book.
When the user asks for an action, answer with exactly one of these forms and nothing before it:
IMAGE_PROMPT: <an English prompt for an image generator>
APPLY_SETTINGS: <a short description of the desired look of the book, or nothing to use the book text>
FORMAT_SCRIPT: <the raw text to format, or nothing to format the current book text>
Otherwise answer normally.`

// GeminiService backs the AI backend routes with Gemini models.
type GeminiService struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) textModel(temperature float32) *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(temperature)
	model.SetTopP(0.95)
	return model
}

func (s *GeminiService) jsonModel(schema *genai.Schema) *genai.GenerativeModel {
	model := s.textModel(0.4)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = schema
	return model
}

// Chat continues a conversation: the history is replayed and message is sent
// as the next user turn.
func (s *GeminiService) Chat(ctx context.Context, message string, history []models.ChatMessage) (reply string, err error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()
	defer func() { metrics.ModelCallsTotal.WithLabelValues("chat", metrics.Outcome(err)).Inc() }()

	model := s.textModel(0.7)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(chatInstruction)}}

	cs := model.StartChat()
	cs.History = toGeminiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned an empty reply")
	}
	return text, nil
}

// FormatScript converts a raw book script into body-level HTML.
func (s *GeminiService) FormatScript(ctx context.Context, raw string) (formatted string, err error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()
	defer func() { metrics.ModelCallsTotal.WithLabelValues("format", metrics.Outcome(err)).Inc() }()

	resp, err := s.textModel(0.2).GenerateContent(ctx, genai.Text(buildFormatPrompt(raw)))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	html := stripFences(extractText(resp))
	if html == "" {
		return "", fmt.Errorf("Gemini returned no formatted text")
	}
	return html, nil
}

// SuggestStyle asks for a full set of design settings and keeps the ones the
// renderer knows.
func (s *GeminiService) SuggestStyle(ctx context.Context, description string) (settings map[string]any, err error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()
	defer func() { metrics.ModelCallsTotal.WithLabelValues("suggest_style", metrics.Outcome(err)).Inc() }()

	resp, err := s.jsonModel(styleSchema()).GenerateContent(ctx, genai.Text(buildStylePrompt(description)))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stripFences(extractText(resp))), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse style settings: %w", err)
	}
	return knownSettings(raw), nil
}

// CoverDescriptions proposes a front-cover image prompt and a back-cover
// blurb.
func (s *GeminiService) CoverDescriptions(ctx context.Context, content string) (covers models.CoverDescriptions, err error) {
	if err := s.acquireRate(ctx); err != nil {
		return covers, err
	}
	defer s.releaseRate()
	defer func() { metrics.ModelCallsTotal.WithLabelValues("cover_descriptions", metrics.Outcome(err)).Inc() }()

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"front_cover_prompt": {Type: genai.TypeString},
			"back_cover_text":    {Type: genai.TypeString},
		},
		Required: []string{"front_cover_prompt", "back_cover_text"},
	}

	resp, err := s.jsonModel(schema).GenerateContent(ctx, genai.Text(buildCoverPrompt(content)))
	if err != nil {
		return covers, fmt.Errorf("Gemini API error: %w", err)
	}

	if err := json.Unmarshal([]byte(stripFences(extractText(resp))), &covers); err != nil {
		return covers, fmt.Errorf("failed to parse cover descriptions: %w", err)
	}
	if covers.FrontCoverPrompt == "" || covers.BackCoverText == "" {
		return covers, fmt.Errorf("Gemini returned incomplete cover descriptions")
	}
	return covers, nil
}

// CoverPrompt writes an image prompt for the front cover from the script.
// It falls back to a generic prompt when the model fails.
func (s *GeminiService) CoverPrompt(ctx context.Context, script string) string {
	if err := s.acquireRate(ctx); err != nil {
		return fallbackCoverPrompt
	}
	defer s.releaseRate()

	prompt := fmt.Sprintf(`Generate a concise, creative and highly descriptive prompt for the FRONT book cover based on the following book script.
Focus on key visual themes, mood, central elements and artistic style. The prompt will be used by an image generation model.
Write it in English and return only the prompt.

Book script excerpt:
---
%s
---`, truncateRunes(script, coverPromptInput))

	resp, err := s.textModel(0.8).GenerateContent(ctx, genai.Text(prompt))
	metrics.ModelCallsTotal.WithLabelValues("cover_prompt", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Printf("WARNING: cover prompt generation failed: %v", err)
		return fallbackCoverPrompt
	}
	if text := strings.TrimSpace(extractText(resp)); text != "" {
		return text
	}
	return fallbackCoverPrompt
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// toGeminiHistory maps studio roles onto Gemini's user/model roles. Image
// parts are replayed as a short text marker; data URLs are never sent back.
func toGeminiHistory(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}

		parts := make([]genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Kind {
			case models.PartImage:
				parts = append(parts, genai.Text(imageMarker(p.URL)))
			default:
				if p.Text != "" {
					parts = append(parts, genai.Text(p.Text))
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func imageMarker(url string) string {
	if url == "" || strings.HasPrefix(url, "data:") {
		return "[image shown to the user]"
	}
	return "[image shown to the user: " + url + "]"
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// styleKeys lists the options a style suggestion may set. Header and footer
// texts belong to the author.
func styleKeys() []string {
	keys := slices.Sorted(maps.Keys(document.Defaults()))
	return slices.DeleteFunc(keys, func(k string) bool {
		return k == "headerText" || k == "footerText"
	})
}

func styleSchema() *genai.Schema {
	props := make(map[string]*genai.Schema)
	for _, key := range styleKeys() {
		props[key] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props}
}

// knownSettings drops keys outside the vocabulary and values that are not
// plain strings or numbers.
func knownSettings(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, ok := document.Kind(k); !ok {
			continue
		}
		switch v.(type) {
		case string, float64:
			out[k] = v
		}
	}
	return out
}

func buildFormatPrompt(raw string) string {
	return fmt.Sprintf(`You are a professional book formatter. Convert the following raw book script into clean, semantic HTML for print.
Rules:
1. Use <h1> for chapter titles, <h2> for sections and <h3> for sub-sections.
2. Wrap body text in <p>. Use <ul>/<ol>/<li> for lists, <strong>/<em> for emphasis, <blockquote> for quotes, <pre><code> for code and standard table tags for tabular data.
3. If the text is Arabic or another right-to-left language, keep dir="rtl" on the relevant blocks.
4. Convert image references such as "Image: URL" into <img src="URL" alt="..."> tags; never invent image URLs.
5. Preserve the content exactly. Add no commentary.
6. Output only the content that belongs inside <body>, without markdown fences.

Raw book script:
---
%s
---`, truncateRunes(raw, formatInputLimit))
}

func buildStylePrompt(description string) string {
	return fmt.Sprintf(`Based on the following book description, suggest professional design settings for the printed book.
Return a JSON object with these keys: %s.
Colors are hex codes, sizes use CSS units (pt, mm, em, px or %%), alignments are right, left, center or justify.

Book description: "%s"`, strings.Join(styleKeys(), ", "), truncateRunes(description, styleDescriptionInput))
}

func buildCoverPrompt(content string) string {
	return fmt.Sprintf(`You are a creative book cover designer. Based on the following book content, write:
1. front_cover_prompt: a prompt for an image generation model for the FRONT cover, focused on visual themes, mood and central elements.
2. back_cover_text: a short, engaging plain-text blurb for the BACK cover.

Book content:
---
%s
---`, truncateRunes(content, coverContentInput))
}
