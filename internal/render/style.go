package render

import (
	"html/template"
	"regexp"

	"bookcraft-backend/internal/document"
)

var (
	colorValue  = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)
	lengthValue = regexp.MustCompile(`^-?[0-9]*\.?[0-9]+(px|pt|em|rem|mm|cm|in|%|vh|vw)?$`)
	choiceValue = regexp.MustCompile(`^[\w\s,'"-]{1,80}$`)
	textValue   = regexp.MustCompile(`^[\w\s#.,()%-]{0,120}$`)
)

// styleValue returns the configured value of key when it is safe to place
// in a stylesheet, and the default value otherwise.
func styleValue(cfg, defaults document.Configuration, key string) template.CSS {
	def := defaults.String(key, "")
	v := cfg.String(key, def)

	kind, ok := document.Kind(key)
	if !ok || !validFor(kind, v) {
		v = def
	}
	return template.CSS(v)
}

func validFor(kind document.OptionKind, v string) bool {
	switch kind {
	case document.KindColor:
		return colorValue.MatchString(v)
	case document.KindLength:
		return lengthValue.MatchString(v)
	case document.KindChoice:
		return choiceValue.MatchString(v)
	default:
		return textValue.MatchString(v)
	}
}

// Style is the resolved stylesheet input of a book.
type Style map[string]template.CSS

func resolveStyle(cfg document.Configuration) Style {
	defaults := document.Defaults()
	out := make(Style, len(defaults))
	for key := range defaults {
		out[key] = styleValue(cfg, defaults, key)
	}
	return out
}
