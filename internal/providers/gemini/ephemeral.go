package gemini

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"
)

// TokenRequest describes a single-use Live API credential.
type TokenRequest struct {
	Model string
	TTL   time.Duration
}

type EphemeralToken struct {
	Token     string
	ExpiresAt time.Time
	Model     string
}

// CreateEphemeralToken issues a token locked to one Live API session on
// req.Model.
func (c *Client) CreateEphemeralToken(ctx context.Context, req TokenRequest) (*EphemeralToken, error) {
	if !c.Configured() {
		return nil, errNotConfigured
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}
	now := time.Now().UTC()
	expires := now.Add(req.TTL)

	cfg := &genai.CreateAuthTokenConfig{
		HTTPOptions:          &genai.HTTPOptions{APIVersion: liveAPIVersion},
		Uses:                 genai.Ptr[int32](1),
		ExpireTime:           expires,
		NewSessionExpireTime: now.Add(time.Minute),
	}
	if req.Model != "" {
		cfg.LiveConnectConstraints = &genai.LiveConnectConstraints{Model: req.Model}
	}

	tok, err := c.genai.AuthTokens.Create(ctx, cfg)
	if err != nil {
		return nil, apiError(err)
	}
	if tok == nil || tok.Name == "" {
		return nil, errors.New("gemini api: empty token in reply")
	}
	return &EphemeralToken{Token: tok.Name, ExpiresAt: expires, Model: req.Model}, nil
}
