// Package completion calls the external code completion service.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
)

// DefaultSuggestionType is sent when a request leaves the type empty.
const DefaultSuggestionType = "completion"

// ErrNoService is returned when no service URL is configured.
var ErrNoService = errors.New("no completion service configured")

// Request is the body of a suggestion request. Line and column are
// 1-based, as editors report them.
type Request struct {
	FileContent    string `json:"fileContent"`
	CursorLine     int    `json:"cursorLine"`
	CursorColumn   int    `json:"cursorColumn"`
	SuggestionType string `json:"suggestionType"`
}

type response struct {
	Suggestion string `json:"suggestion"`
}

// Client posts requests to a completion endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for url with a per-request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

// Suggest returns the service's suggestion for req, cleaned of line-number
// prefixes and surrounding whitespace.
func (c *Client) Suggest(ctx context.Context, req Request) (string, error) {
	if c.url == "" {
		return "", ErrNoService
	}
	if req.SuggestionType == "" {
		req.SuggestionType = DefaultSuggestionType
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()
	logging.Debug("completion response", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion service returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return Clean(out.Suggestion), nil
}

var lineNumberPrefix = regexp.MustCompile(`(?m)^[ \t]*\d+:[ \t]?`)

// Clean drops "12: " style prefixes from every line and trims the result.
func Clean(suggestion string) string {
	return strings.TrimSpace(lineNumberPrefix.ReplaceAllString(suggestion, ""))
}
