package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"bookcraft-backend/internal/metrics"
)

const (
	imagenEndpoint   = "https://generativelanguage.googleapis.com/v1beta/models/imagen-3.0-generate-002:predict"
	PlaceholderCover = "https://placehold.co/600x800/E0E0E0/333333?text=Cover+Placeholder"
)

// ImageService generates cover images with Imagen. It never fails: without a
// key, or when the call does not produce an image, it returns a placeholder.
type ImageService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewImageService(apiKey string, timeout time.Duration) *ImageService {
	return &ImageService{
		apiKey:     apiKey,
		endpoint:   imagenEndpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int `json:"sampleCount"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MIMEType           string `json:"mimeType"`
	} `json:"predictions"`
}

// Generate returns a data URL of the generated image, or PlaceholderCover.
func (s *ImageService) Generate(ctx context.Context, prompt string) string {
	if s.apiKey == "" {
		log.Println("WARNING: Imagen API key not set. Using placeholder cover.")
		return PlaceholderCover
	}

	dataURL, err := s.predict(ctx, prompt)
	metrics.ModelCallsTotal.WithLabelValues("image", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Printf("WARNING: image generation failed: %v", err)
		return PlaceholderCover
	}
	return dataURL
}

func (s *ImageService) predict(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(imagenRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: 1},
	})
	if err != nil {
		return "", err
	}

	endpoint := s.endpoint + "?key=" + url.QueryEscape(s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Imagen request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read Imagen response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Imagen returned status %d", resp.StatusCode)
	}

	var out imagenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse Imagen response: %w", err)
	}
	if len(out.Predictions) == 0 || out.Predictions[0].BytesBase64Encoded == "" {
		return "", fmt.Errorf("Imagen returned no image")
	}

	mime := out.Predictions[0].MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + out.Predictions[0].BytesBase64Encoded, nil
}
