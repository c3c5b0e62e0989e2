// Package render turns a book (title, HTML body, cover and configuration)
// into a single print-ready HTML document.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"bookcraft-backend/internal/document"
)

const authorLine = "By: Smart Book Maker"

// Book is the input of Render.
type Book struct {
	Title         string
	BodyHTML      string
	CoverURL      string
	BackCoverText string
	Settings      document.Configuration
}

type bookView struct {
	Title      string
	Dir        string
	HeaderText string
	FooterText string
	CoverURL   template.URL
	Author     string
	TOC        []TOCEntry
	Body       template.HTML
	BackCover  template.HTML
	S          Style
}

// Render builds the book document: cover page, table of contents from the
// body's headings, the body itself and an optional back cover.
func Render(b Book) ([]byte, error) {
	body, toc, err := annotateHeadings(b.BodyHTML)
	if err != nil {
		return nil, err
	}

	var backCover template.HTML
	if strings.TrimSpace(b.BackCoverText) != "" {
		backCover, err = Markdown(b.BackCoverText)
		if err != nil {
			return nil, err
		}
	}

	style := resolveStyle(b.Settings)
	dir := "ltr"
	if style["textAlign"] == "right" {
		dir = "rtl"
	}

	view := bookView{
		Title:      b.Title,
		Dir:        dir,
		HeaderText: b.Settings.String("headerText", b.Title),
		FooterText: b.Settings.String("footerText", document.Defaults().String("footerText", "")),
		CoverURL:   coverURL(b.CoverURL),
		Author:     authorLine,
		TOC:        toc,
		Body:       template.HTML(body),
		BackCover:  backCover,
		S:          style,
	}

	var buf bytes.Buffer
	if err := bookTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render book: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown converts markdown text to HTML. Raw HTML in the source is not
// passed through.
func Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// coverURL admits http(s) and inline image URLs only.
func coverURL(u string) template.URL {
	switch {
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "data:image/"):
		return template.URL(u)
	}
	return ""
}

var bookTemplate = template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html dir="{{.Dir}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
@page {
  size: A4;
  margin: {{.S.pageMarginTop}} {{.S.pageMarginRight}} {{.S.pageMarginBottom}} {{.S.pageMarginLeft}};
  @top-center { content: element(header); }
  @bottom-center { content: element(footer); }
}
body {
  font-family: {{.S.fontFamily}}, sans-serif;
  color: {{.S.textColor}};
  background-color: {{.S.backgroundColor}};
  margin: 0;
  line-height: {{.S.lineHeight}};
  text-align: {{.S.textAlign}};
  font-size: {{.S.fontSize}};
}
.header { position: running(header); text-align: center; font-size: {{.S.headerFontSize}}; color: {{.S.headerColor}}; border-bottom: 1px solid #eee; padding-bottom: 5px; }
.footer { position: running(footer); text-align: center; font-size: {{.S.footerFontSize}}; color: {{.S.footerColor}}; border-top: 1px solid #eee; padding-top: 5px; }
.footer::after { content: " " counter(page) " / " counter(pages); }
.cover-page { text-align: center; display: flex; flex-direction: column; justify-content: center; align-items: center; height: 100vh; page-break-after: always; padding: 20mm; box-sizing: border-box; }
.cover-image { max-width: {{.S.coverWidth}}; max-height: {{.S.coverHeight}}; border-radius: {{.S.coverBorderRadius}}; box-shadow: {{.S.coverShadow}}; margin-bottom: 40px; object-fit: contain; }
.book-title { font-size: {{.S.titleFontSize}}; font-weight: bold; margin-bottom: 25px; color: {{.S.titleColor}}; text-align: center; }
.author { font-size: 18pt; color: {{.S.textColor}}; margin-top: 15px; }
.content-body { text-align: {{.S.textAlign}}; }
p { margin-bottom: {{.S.paragraphSpacing}}; text-indent: {{.S.paragraphIndent}}; }
h1 { font-size: {{.S.heading1FontSize}}; color: {{.S.headingColor}}; text-align: {{.S.heading1Alignment}}; margin: 2em 0 1em; page-break-before: always; }
h2 { font-size: {{.S.heading2FontSize}}; color: {{.S.headingColor}}; text-align: {{.S.heading2Alignment}}; margin: 1.5em 0 0.8em; border-bottom: 1px solid #eee; padding-bottom: 5px; }
h3 { font-size: 1.4em; color: {{.S.headingColor}}; text-align: {{.S.textAlign}}; margin: 1.2em 0 0.6em; }
.content-body img { max-width: 100%; height: auto; display: block; margin: 1em auto; border-radius: 8px; }
.content-body img.align-left { float: left; margin-right: 1em; }
.content-body img.align-right { float: right; margin-left: 1em; }
.content-body img.align-center { display: block; margin-left: auto; margin-right: auto; text-align: {{.S.imageAlignment}}; }
blockquote { border-inline-start: 4px solid {{.S.headingColor}}; padding-inline-start: 1em; margin: 1em 0; font-style: italic; color: {{.S.headingColor}}; }
pre { background-color: #f4f4f4; border: 1px solid #ddd; padding: 1em; border-radius: 5px; }
table { width: 100%; border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: {{.S.textAlign}}; }
.table-of-contents { page-break-after: always; padding-top: 50mm; }
.toc-title { font-size: 30pt; text-align: center; margin-bottom: 30px; color: {{.S.titleColor}}; }
.toc-list { list-style-type: none; padding: 0; }
.toc-list li { margin-bottom: 0.8em; font-size: 14pt; }
.toc-level-1 { font-weight: bold; }
.toc-level-2 { margin-inline-start: 2em; }
.toc-level-3 { margin-inline-start: 4em; }
.toc-list a { text-decoration: none; color: {{.S.textColor}}; }
.back-cover-page { page-break-before: always; display: flex; flex-direction: column; justify-content: center; align-items: center; height: 100vh; background-color: {{.S.backCoverBackgroundColor}}; color: {{.S.backCoverTextColor}}; padding: 20mm; box-sizing: border-box; }
.back-cover-text { font-size: {{.S.backCoverFontSize}}; text-align: center; max-width: 150mm; }
</style>
</head>
<body>
<div class="header">{{.HeaderText}}</div>
<div class="footer">{{.FooterText}}</div>

<div class="page cover-page">
  <h1 class="book-title">{{.Title}}</h1>
  {{- if .CoverURL}}
  <img src="{{.CoverURL}}" class="cover-image" alt="Book Cover">
  {{- end}}
  <p class="author">{{.Author}}</p>
</div>
{{if .TOC}}
<div class="page table-of-contents">
  <h1 class="toc-title">Table of Contents</h1>
  <ul class="toc-list">
  {{- range .TOC}}
    <li class="toc-level-{{.Level}}"><a href="#{{.ID}}">{{.Text}}</a></li>
  {{- end}}
  </ul>
</div>
{{end}}
<div class="content-body">
{{.Body}}
</div>
{{- if .BackCover}}
<div class="page back-cover-page"><div class="back-cover-text">{{.BackCover}}</div></div>
{{- end}}
</body>
</html>
`))
