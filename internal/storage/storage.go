package storage

import (
	"context"
	"io"
)

// Store keeps answer audio. Object names are bucket-relative.
type Store interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader) (url string, err error)
	Open(ctx context.Context, objectName string) (io.ReadCloser, error)
	Close() error
}
