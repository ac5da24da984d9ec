package services

import (
	"context"
	"errors"
	"time"

	"github.com/applymint/applymint/internal/metrics"
	"github.com/applymint/applymint/internal/models"
	"github.com/applymint/applymint/internal/providers/gemini"
	"github.com/applymint/applymint/internal/providers/stt"
	"github.com/applymint/applymint/internal/utils"

	"github.com/sirupsen/logrus"
)

const EphemeralTokenTTL = time.Hour

type AudioConfig struct {
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bitDepth"`
	Encoding   string `json:"encoding"`
}

type EphemeralToken struct {
	EphemeralToken string      `json:"ephemeralToken"`
	ExpiresAt      time.Time   `json:"expiresAt"`
	Model          string      `json:"model"`
	AudioConfig    AudioConfig `json:"audioConfig"`
}

// TokenIssuer is the slice of the Gemini client the token service needs.
type TokenIssuer interface {
	Configured() bool
	CreateEphemeralToken(ctx context.Context, req gemini.TokenRequest) (*gemini.EphemeralToken, error)
}

type TokenService interface {
	Issue(ctx context.Context, caller models.Caller, sessionID, model string) (*EphemeralToken, error)
}

type tokenService struct {
	issuer       TokenIssuer
	sessions     SessionService
	defaultModel string
	metrics      *metrics.Metrics
	log          *logrus.Logger
}

func NewTokenService(issuer TokenIssuer, sessions SessionService, defaultModel string, m *metrics.Metrics, log *logrus.Logger) TokenService {
	return &tokenService{issuer: issuer, sessions: sessions, defaultModel: defaultModel, metrics: m, log: log}
}

func (s *tokenService) Issue(ctx context.Context, caller models.Caller, sessionID, model string) (*EphemeralToken, error) {
	const op = "TokenService.Issue"

	if s.issuer == nil || !s.issuer.Configured() {
		s.metrics.TokenIssued("unconfigured")
		return nil, utils.E(utils.CodeUnavailable, op, "Gemini API not configured", nil)
	}

	if sessionID != "" {
		sess, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess != nil && sess.UserID != caller.ID {
			return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
		}
	}

	if model == "" {
		model = s.defaultModel
	}
	tok, err := s.issuer.CreateEphemeralToken(ctx, gemini.TokenRequest{Model: model, TTL: EphemeralTokenTTL})
	if err != nil {
		s.metrics.TokenIssued("error")
		s.log.WithError(err).WithField("user_id", caller.ID).Error("ephemeral token request failed")
		status := 0
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, utils.Upstream(op, "failed to create ephemeral token", status, err)
	}

	s.metrics.TokenIssued("ok")
	return &EphemeralToken{
		EphemeralToken: tok.Token,
		ExpiresAt:      tok.ExpiresAt,
		Model:          model,
		AudioConfig: AudioConfig{
			SampleRate: stt.SampleRateHz,
			Channels:   stt.Channels,
			BitDepth:   stt.BitDepth,
			Encoding:   "pcm_s16le",
		},
	}, nil
}
