package directive

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantOK  bool
		kind    Kind
		payload string
	}{
		{"image prompt", "IMAGE_PROMPT: a flying cat", true, ImageRequest, "a flying cat"},
		{"style with hint", "APPLY_SETTINGS: a calm poetry book", true, StyleRequest, "a calm poetry book"},
		{"style empty payload", "APPLY_SETTINGS:", true, StyleRequest, ""},
		{"format multiline", "FORMAT_SCRIPT:\nChapter 1\n\nIt begins.  ", true, FormatRequest, "Chapter 1\n\nIt begins."},
		{"leading whitespace", "  \n IMAGE_PROMPT:sunset", true, ImageRequest, "sunset"},
		{"token not at start", "Sure! IMAGE_PROMPT: a cat", false, 0, ""},
		{"lower case", "image_prompt: a cat", false, 0, ""},
		{"plain text", "Here are some ideas for your book.", false, 0, ""},
		{"empty reply", "", false, 0, ""},
		{"prefix without colon", "IMAGE_PROMPT a cat", false, 0, ""},
		{"first prefix wins over later tokens", "IMAGE_PROMPT: APPLY_SETTINGS: x", true, ImageRequest, "APPLY_SETTINGS: x"},
		{"format carrying another token", "FORMAT_SCRIPT: IMAGE_PROMPT: y", true, FormatRequest, "IMAGE_PROMPT: y"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := Parse(tc.reply)
			if ok != tc.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tc.reply, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if d.Kind != tc.kind {
				t.Errorf("expected kind %v, got %v", tc.kind, d.Kind)
			}
			if d.Payload != tc.payload {
				t.Errorf("expected payload %q, got %q", tc.payload, d.Payload)
			}
		})
	}
}

func TestParse_Deterministic(t *testing.T) {
	reply := "APPLY_SETTINGS: warm colours"
	first, _ := Parse(reply)
	for i := 0; i < 10; i++ {
		got, _ := Parse(reply)
		if got != first {
			t.Fatalf("Parse returned %+v then %+v", first, got)
		}
	}
}

func TestKindString(t *testing.T) {
	if ImageRequest.String() != "image" || StyleRequest.String() != "style" || FormatRequest.String() != "format" {
		t.Fatalf("unexpected kind names")
	}
	if Kind(0).String() != "unknown" {
		t.Fatalf("zero kind should be unknown")
	}
}
