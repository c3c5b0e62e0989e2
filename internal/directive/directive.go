// Package directive recognises the machine-actionable instructions the AI
// embeds at the start of a chat reply.
//
// The grammar is a fixed literal prefix followed by a free-text payload:
//
//	IMAGE_PROMPT: <prompt>
//	APPLY_SETTINGS: <description hint>
//	FORMAT_SCRIPT: <raw text>
//
// Prefixes are case-sensitive and anchored at the start of the trimmed
// reply. There is no escaping or nesting, and a reply carries at most one
// directive. The prompts on the AI side depend on this exact grammar.
package directive

import "strings"

type Kind int

const (
	ImageRequest Kind = iota + 1
	StyleRequest
	FormatRequest
)

func (k Kind) String() string {
	switch k {
	case ImageRequest:
		return "image"
	case StyleRequest:
		return "style"
	case FormatRequest:
		return "format"
	default:
		return "unknown"
	}
}

// Directive is a parsed instruction. Payload may be empty.
type Directive struct {
	Kind    Kind
	Payload string
}

// prefixes is checked in order; the first match wins.
var prefixes = []struct {
	token string
	kind  Kind
}{
	{"IMAGE_PROMPT:", ImageRequest},
	{"APPLY_SETTINGS:", StyleRequest},
	{"FORMAT_SCRIPT:", FormatRequest},
}

// Parse returns the directive carried by reply, if any.
func Parse(reply string) (Directive, bool) {
	trimmed := strings.TrimSpace(reply)
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(trimmed, p.token); ok {
			return Directive{Kind: p.kind, Payload: strings.TrimSpace(rest)}, true
		}
	}
	return Directive{}, false
}
