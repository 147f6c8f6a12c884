// Package ocr is a client for the OCR.space image parsing API.
package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

const (
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	DefaultLanguage = "eng"
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
)

var (
	ErrNotConfigured = errors.New("ocr api key not configured")
	ErrEmptyImage    = errors.New("empty image")
	ErrNoText        = errors.New("ocr returned no text")
)

// ProcessingError is returned when the API reports IsErroredOnProcessing.
type ProcessingError struct {
	Messages []string
}

func (e *ProcessingError) Error() string {
	if len(e.Messages) == 0 {
		return "ocr processing failed"
	}
	return "ocr processing failed: " + strings.Join(e.Messages, "; ")
}

// statusError is a non-2xx answer from the endpoint.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ocr endpoint returned status %d", e.Code)
}

// Config configures a Client.
type Config struct {
	APIKey     string
	Endpoint   string
	Language   string
	Attempts   uint
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client posts images to the OCR endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: hc}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// ParseImage sends image (raw bytes of contentType) for recognition and
// returns the extracted text.
func (c *Client) ParseImage(ctx context.Context, image []byte, contentType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}
	encoded := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
	return c.ParseBase64(ctx, encoded)
}

// ParseBase64 sends an already encoded data URI.
func (c *Client) ParseBase64(ctx context.Context, base64Image string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(base64Image) == "" {
		return "", ErrEmptyImage
	}

	form := url.Values{}
	form.Set("apikey", c.cfg.APIKey)
	form.Set("base64Image", base64Image)
	form.Set("language", c.cfg.Language)

	var text string
	err := retry.Do(
		func() error {
			var err error
			text, err = c.post(ctx, form)
			return err
		},
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{Code: resp.StatusCode}
	}

	var body parseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if body.IsErroredOnProcessing {
		return "", &ProcessingError{Messages: errorMessages(body.ErrorMessage)}
	}

	var parts []string
	for _, r := range body.ParsedResults {
		if t := strings.TrimSpace(r.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoText
	}
	return strings.Join(parts, "\n"), nil
}

// isRetryable retries throttling and server errors only.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return false
}

// errorMessages accepts both the string and the list form of ErrorMessage.
func errorMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
