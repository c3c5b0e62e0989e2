// Package document holds the styling configuration of a book and the live
// document a studio session edits.
package document

import (
	"fmt"
	"maps"
)

// Configuration maps option names to values. Values are whatever the JSON
// decoder produced; nothing here validates them.
type Configuration map[string]any

type OptionKind int

const (
	KindText OptionKind = iota
	KindColor
	KindLength
	KindChoice
)

type option struct {
	kind     OptionKind
	fallback any
}

// vocabulary lists the options the renderer understands, with the values a
// fresh document starts from.
var vocabulary = map[string]option{
	"textColor":                {KindColor, "#000000"},
	"backgroundColor":          {KindColor, "#ffffff"},
	"fontFamily":               {KindChoice, "Inter"},
	"fontSize":                 {KindLength, "12pt"},
	"lineHeight":               {KindLength, "1.5"},
	"textAlign":                {KindChoice, "right"},
	"titleColor":               {KindColor, "#333333"},
	"titleFontSize":            {KindLength, "36pt"},
	"pageMarginTop":            {KindLength, "20mm"},
	"pageMarginBottom":         {KindLength, "20mm"},
	"pageMarginLeft":           {KindLength, "20mm"},
	"pageMarginRight":          {KindLength, "20mm"},
	"paragraphSpacing":         {KindLength, "1em"},
	"paragraphIndent":          {KindLength, "1.5em"},
	"heading1FontSize":         {KindLength, "24pt"},
	"heading2FontSize":         {KindLength, "18pt"},
	"headingColor":             {KindColor, "#444444"},
	"heading1Alignment":        {KindChoice, "center"},
	"heading2Alignment":        {KindChoice, "right"},
	"coverWidth":               {KindLength, "80%"},
	"coverHeight":              {KindLength, "70%"},
	"coverBorderRadius":        {KindLength, "15px"},
	"coverShadow":              {KindText, "0 10px 20px rgba(0,0,0,0.25)"},
	"headerText":               {KindText, ""},
	"footerText":               {KindText, "Smart Book Maker"},
	"imageAlignment":           {KindChoice, "center"},
	"headerFontSize":           {KindLength, "10pt"},
	"footerFontSize":           {KindLength, "10pt"},
	"headerColor":              {KindColor, "#888"},
	"footerColor":              {KindColor, "#888"},
	"backCoverFontSize":        {KindLength, "12pt"},
	"backCoverTextColor":       {KindColor, "#000000"},
	"backCoverBackgroundColor": {KindColor, "#ffffff"},
}

// Defaults returns a fresh copy of the starting configuration.
func Defaults() Configuration {
	c := make(Configuration, len(vocabulary))
	for k, o := range vocabulary {
		c[k] = o.fallback
	}
	return c
}

// Kind reports how the renderer interprets an option. Unknown options are
// reported as free text.
func Kind(key string) (OptionKind, bool) {
	o, ok := vocabulary[key]
	if !ok {
		return KindText, false
	}
	return o.kind, true
}

// Merge returns c overlaid with p. Keys of p win on conflict; no key of c is
// ever dropped. Neither argument is modified.
func Merge(c, p Configuration) Configuration {
	out := make(Configuration, len(c)+len(p))
	maps.Copy(out, c)
	maps.Copy(out, p)
	return out
}

// Clone returns an independent copy of c.
func (c Configuration) Clone() Configuration {
	return Merge(c, nil)
}

// String looks up an option and renders it as text, falling back to def
// when the option is absent or empty.
func (c Configuration) String(key, def string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return def
	}
	return s
}
