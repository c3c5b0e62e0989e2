package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"bookcraft-backend/internal/document"
	"bookcraft-backend/internal/models"
	"bookcraft-backend/internal/render"
)

const (
	untitledBook          = "Untitled Book"
	bookGeneratedMessage  = "Book generated successfully!"
	DocumentDownloadRoute = "/download-pdf/"
)

var (
	ErrDocumentNotFound = errors.New("document not found")

	storedDocumentName = regexp.MustCompile(`^book_[0-9a-f]{32}\.html$`)
)

// BookAI is the model work a book generation needs.
type BookAI interface {
	FormatScript(ctx context.Context, raw string) (string, error)
	CoverPrompt(ctx context.Context, script string) string
}

type CoverGenerator interface {
	Generate(ctx context.Context, prompt string) string
}

// BookService renders books and keeps the rendered documents on disk.
type BookService struct {
	ai     BookAI
	images CoverGenerator
	dir    string
}

func NewBookService(ai BookAI, images CoverGenerator, storagePath string) (*BookService, error) {
	dir := filepath.Join(storagePath, "books")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create book storage: %w", err)
	}
	return &BookService{ai: ai, images: images, dir: dir}, nil
}

// Generate formats the script, resolves the cover, renders the document and
// stores it. The cover is the user's URL if given, else an image generated
// from the cover prompt, else one generated from a prompt written from the
// script.
func (s *BookService) Generate(ctx context.Context, req models.ArtifactRequest) (models.ArtifactResponse, error) {
	if strings.TrimSpace(req.BookScript) == "" {
		return models.ArtifactResponse{}, ErrEmptyBody
	}
	title := req.EbookTitle
	if strings.TrimSpace(title) == "" {
		title = untitledBook
	}

	body, err := s.ai.FormatScript(ctx, req.BookScript)
	if err != nil {
		log.Printf("WARNING: AI formatting failed, rendering script as markdown: %v", err)
		md, mdErr := render.Markdown(req.BookScript)
		if mdErr != nil {
			return models.ArtifactResponse{}, mdErr
		}
		body = string(md)
	}

	coverURL := req.UserProvidedCoverURL
	if coverURL == "" {
		prompt := req.CoverPrompt
		if prompt == "" {
			prompt = s.ai.CoverPrompt(ctx, req.BookScript)
		}
		coverURL = s.images.Generate(ctx, prompt)
	}

	html, err := render.Render(render.Book{
		Title:         title,
		BodyHTML:      body,
		CoverURL:      coverURL,
		BackCoverText: req.BackCoverText,
		Settings:      document.Configuration(req.Settings),
	})
	if err != nil {
		return models.ArtifactResponse{}, err
	}

	name := "book_" + strings.ReplaceAll(uuid.NewString(), "-", "") + ".html"
	if err := os.WriteFile(filepath.Join(s.dir, name), html, 0o644); err != nil {
		return models.ArtifactResponse{}, fmt.Errorf("failed to store document: %w", err)
	}
	log.Printf("✓ Stored book document %s", name)

	return models.ArtifactResponse{
		CoverURL: coverURL,
		PDFURL:   DocumentDownloadRoute + name,
		Message:  bookGeneratedMessage,
	}, nil
}

// Path returns the location of a stored document. Names that were not
// produced by Generate are rejected.
func (s *BookService) Path(name string) (string, error) {
	if !storedDocumentName.MatchString(name) {
		return "", ErrDocumentNotFound
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrDocumentNotFound
	}
	return path, nil
}
