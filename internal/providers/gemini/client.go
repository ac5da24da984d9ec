// Package gemini wraps the Gemini Developer API SDK for the two calls made
// with the server's API key: Live API ephemeral tokens and text embeddings.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// liveAPIVersion serves auth_tokens; it is not on the default version.
const liveAPIVersion = "v1alpha"

type Client struct {
	genai *genai.Client
}

// NewClient builds a Gemini API client. An empty apiKey yields a client that
// reports Configured() == false and makes no calls. An empty baseURL uses the
// SDK default endpoint.
func NewClient(ctx context.Context, baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return &Client{}, nil
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 20 * time.Second},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{genai: gc}, nil
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.genai != nil
}

var errNotConfigured = errors.New("gemini api: no api key")

// APIError is a non-2xx reply from the provider.
type APIError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.err }

// apiError lifts the SDK's error into *APIError so callers can map the
// upstream status without importing the SDK.
func apiError(err error) error {
	var v genai.APIError
	if errors.As(err, &v) {
		return &APIError{StatusCode: v.Code, Message: v.Message, err: err}
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return &APIError{StatusCode: p.Code, Message: p.Message, err: err}
	}
	return err
}
