package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
)

// Memory is an in-process Store for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *Memory) Upload(_ context.Context, objectName, contentType string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[objectName] = b
	m.types[objectName] = contentType
	m.mu.Unlock()
	return URL("memory", objectName), nil
}

func (m *Memory) Open(_ context.Context, objectName string) (io.ReadCloser, error) {
	m.mu.RLock()
	b, ok := m.objects[objectName]
	m.mu.RUnlock()
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *Memory) ContentType(objectName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.types[objectName]
}

func (m *Memory) Close() error { return nil }
