// internal/transcription/client.go
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	commonhttp "smartbuilding-workers/internal/common/http"
	"smartbuilding-workers/internal/common/logger"
)

// Result is one speech recognition outcome.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Provider converts an audio reference into text. Implemented by the
// HTTP client below and by test fakes.
type Provider interface {
	Recognize(ctx context.Context, audioRef, language string) (Result, error)
}

// Client talks to the external speech recognition service.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *commonhttp.Client
	logger  logger.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   commonhttp.NewClient(timeout),
		logger:  log.With(map[string]interface{}{"component": "transcription"}),
	}
}

func (c *Client) Recognize(ctx context.Context, audioRef, language string) (Result, error) {
	requestBody := map[string]interface{}{
		"audioRef": audioRef,
		"language": language,
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/recognize", bytes.NewBuffer(body))
	if err != nil {
		return Result{}, fmt.Errorf("build recognize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("recognize call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("recognize call: status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decode recognize response: %w", err)
	}

	c.logger.Info("audio transcribed", map[string]interface{}{
		"audioRef":   audioRef,
		"confidence": result.Confidence,
		"chars":      len(result.Text),
	})

	return result, nil
}
