// Package backend is the HTTP client of the AI backend: chat turns, script
// formatting, style suggestions, cover descriptions and artifact generation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookcraft-backend/internal/metrics"
	"bookcraft-backend/internal/models"
)

const maxResponseSize = 20 << 20

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	rateChan   chan struct{} // Token bucket
}

func NewClient(baseURL string, concurrentReqs int, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		rateChan:   rateChan,
	}, nil
}

// Chat sends one user turn with the preceding history and returns the AI
// reply text.
func (c *Client) Chat(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	if history == nil {
		history = []models.ChatMessage{}
	}
	var resp models.BackendChatResponse
	if err := c.post(ctx, "chat", "/chat", models.BackendChatRequest{Message: message, History: history}, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", &BackendError{Op: "chat", Status: http.StatusOK, Message: "response carried no reply"}
	}
	return resp.Response, nil
}

func (c *Client) FormatText(ctx context.Context, raw string) (string, error) {
	var resp models.FormatScriptResponse
	if err := c.post(ctx, "format", "/format-script-with-ai", models.FormatScriptRequest{RawScript: raw}, &resp); err != nil {
		return "", err
	}
	if resp.FormattedHTML == "" {
		return "", &BackendError{Op: "format", Status: http.StatusOK, Message: "response carried no formattedHtml"}
	}
	return resp.FormattedHTML, nil
}

func (c *Client) SuggestStyle(ctx context.Context, description string) (map[string]any, error) {
	var resp models.SuggestStyleResponse
	if err := c.post(ctx, "suggest_style", "/suggest-style", models.SuggestStyleRequest{BookDescription: description}, &resp); err != nil {
		return nil, err
	}
	if resp.Settings == nil {
		return nil, &BackendError{Op: "suggest_style", Status: http.StatusOK, Message: "response carried no settings"}
	}
	return resp.Settings, nil
}

func (c *Client) CoverDescriptions(ctx context.Context, content string) (models.CoverDescriptions, error) {
	var resp models.CoverDescriptions
	if err := c.post(ctx, "cover_descriptions", "/generate-cover-descriptions", models.CoverDescriptionsRequest{BookContent: content}, &resp); err != nil {
		return models.CoverDescriptions{}, err
	}
	if resp.FrontCoverPrompt == "" || resp.BackCoverText == "" {
		return models.CoverDescriptions{}, &BackendError{Op: "cover_descriptions", Status: http.StatusOK, Message: "response is missing a cover description"}
	}
	return resp, nil
}

// GenerateArtifact asks the backend for a cover image and, when a body is
// supplied, the rendered document. Both come back in one round trip.
func (c *Client) GenerateArtifact(ctx context.Context, req models.ArtifactRequest) (models.ArtifactResponse, error) {
	if req.Settings == nil {
		req.Settings = map[string]any{}
	}
	var resp models.ArtifactResponse
	if err := c.post(ctx, "generate", "/generate-book", req, &resp); err != nil {
		return models.ArtifactResponse{}, err
	}
	return resp, nil
}

// ResolveURL turns a backend-relative reference (such as a document path)
// into an absolute URL. Absolute references and data URLs are returned
// unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

func (c *Client) post(ctx context.Context, op, path string, in, out any) (err error) {
	if err := c.acquireRate(ctx); err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer c.releaseRate()

	start := time.Now()
	defer func() {
		metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.BackendRequestsTotal.WithLabelValues(op, outcomeLabel(err)).Inc()
	}()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure models.BackendErrorBody
		if err := json.Unmarshal(data, &failure); err != nil || failure.Error == "" {
			failure.Error = http.StatusText(resp.StatusCode)
		}
		return &BackendError{Op: op, Status: resp.StatusCode, Message: failure.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &BackendError{Op: op, Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// acquireRate blocks until a request slot is available
func (c *Client) acquireRate(ctx context.Context) error {
	select {
	case <-c.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) releaseRate() {
	c.rateChan <- struct{}{}
}

func outcomeLabel(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *NetworkError:
		return "network_error"
	case *BackendError:
		return "backend_error"
	default:
		return "error"
	}
}
