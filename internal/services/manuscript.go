package services

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported manuscript format")
	ErrNoText            = errors.New("manuscript has no extractable text")
)

// ManuscriptFormat describes one importable file type.
type ManuscriptFormat struct {
	Extension   string `json:"extension"`
	MIMEType    string `json:"mime_type"`
	Description string `json:"description"`
}

var ManuscriptFormats = []ManuscriptFormat{
	{".txt", "text/plain", "Plain Text"},
	{".md", "text/markdown", "Markdown"},
	{".pdf", "application/pdf", "PDF Document"},
	{".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "Word Document"},
}

// ExtractManuscript returns the plain text of an uploaded manuscript. The
// format is chosen by the extension of name.
func ExtractManuscript(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		text = string(data)
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
	if err != nil {
		return "", err
	}

	text = normalizeManuscript(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()

		xml, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		return stripWordML(xml), nil
	}
	return "", fmt.Errorf("read docx: word/document.xml not found")
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

var wordBreaks = strings.NewReplacer(
	"</w:p>", "\n",
	"<w:br/>", "\n",
	"<w:br />", "\n",
	"<w:tab/>", "\t",
)

var xmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

func stripWordML(src []byte) string {
	s := wordBreaks.Replace(string(src))
	s = xmlTag.ReplaceAllString(s, "")
	return xmlEntities.Replace(s)
}

// normalizeManuscript trims every line and collapses runs of blank lines
// into one paragraph break.
func normalizeManuscript(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var buf strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blank++
			if blank == 1 {
				buf.WriteString("\n")
			}
			continue
		}
		blank = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}
	return strings.TrimSpace(buf.String())
}
