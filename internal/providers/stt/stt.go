package stt

import (
	"context"
	"strings"
)

// Transcript is the best recognition alternative for one clip.
type Transcript struct {
	Text       string
	Confidence float64
	Language   string
}

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (Transcript, error)
	Close() error
}

// NormalizeLanguage maps short codes to BCP-47 tags. Empty means en-US.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "":
		return "en-US"
	case "en", "en-us":
		return "en-US"
	case "id", "id-id":
		return "id-ID"
	case "es", "es-es":
		return "es-ES"
	default:
		return v
	}
}
