package services

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"bookcraft-backend/internal/models"
)

func TestToGeminiHistory_MapsRolesAndParts(t *testing.T) {
	history := []models.ChatMessage{
		models.UserMessage("draw a cat"),
		models.AssistantMessage(models.Text("Image generated:"), models.Image("https://img/cat.png")),
		{Role: models.RoleUser, Parts: []models.ContentPart{models.Text("")}},
	}

	got := toGeminiHistory(history)
	if len(got) != 2 {
		t.Fatalf("expected empty messages to be skipped, got %d contents", len(got))
	}
	if got[0].Role != "user" || got[1].Role != "model" {
		t.Fatalf("unexpected roles %q, %q", got[0].Role, got[1].Role)
	}
	if len(got[1].Parts) != 2 {
		t.Fatalf("expected two parts, got %d", len(got[1].Parts))
	}
	if img, ok := got[1].Parts[1].(genai.Text); !ok || !strings.Contains(string(img), "https://img/cat.png") {
		t.Fatalf("expected image part replayed as text, got %#v", got[1].Parts[1])
	}
}

func TestToGeminiHistory_DataURLIsNotReplayed(t *testing.T) {
	dataURL := "data:image/png;base64," + strings.Repeat("A", 1<<20)
	history := []models.ChatMessage{
		models.AssistantMessage(models.Text("Image generated:"), models.Image(dataURL)),
	}

	got := toGeminiHistory(history)
	if len(got) != 1 || len(got[0].Parts) != 2 {
		t.Fatalf("unexpected history %#v", got)
	}

	size := 0
	for _, p := range got[0].Parts {
		size += len(p.(genai.Text))
	}
	if size > 256 {
		t.Fatalf("image turn replayed %d bytes of prompt text", size)
	}
	if marker := string(got[0].Parts[1].(genai.Text)); marker != "[image shown to the user]" {
		t.Fatalf("unexpected image marker %q", marker)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<h1>A</h1>", "<h1>A</h1>"},
		{"```html\n<h1>A</h1>\n```", "<h1>A</h1>"},
		{"```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"  ```\n<p>x</p>```", "<p>x</p>"},
		{"```", ""},
	}
	for _, tc := range tests {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKnownSettings_DropsUnknownKeysAndValues(t *testing.T) {
	got := knownSettings(map[string]any{
		"textColor":  "#111111",
		"lineHeight": 1.6,
		"madeUp":     "x",
		"fontSize":   map[string]any{"nested": true},
	})
	if len(got) != 2 || got["textColor"] != "#111111" || got["lineHeight"] != 1.6 {
		t.Fatalf("unexpected settings %v", got)
	}
}

func TestStyleSchema_CoversVocabularyExceptAuthorTexts(t *testing.T) {
	schema := styleSchema()
	if schema.Type != genai.TypeObject {
		t.Fatalf("expected object schema")
	}
	if _, ok := schema.Properties["textColor"]; !ok {
		t.Fatalf("expected textColor in schema")
	}
	if _, ok := schema.Properties["footerText"]; ok {
		t.Fatalf("footerText must not be suggested")
	}
	if len(schema.Properties) != len(styleKeys()) {
		t.Fatalf("schema and prompt keys differ")
	}
}

func TestBuildPrompts_TruncateInput(t *testing.T) {
	long := strings.Repeat("x", 20000)
	if strings.Count(buildFormatPrompt(long), "x") > formatInputLimit+10 {
		t.Fatalf("format prompt was not truncated")
	}
	if strings.Count(buildCoverPrompt(long), "x") > coverContentInput+10 {
		t.Fatalf("cover prompt was not truncated")
	}
}
