package store

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps options in process memory. Entries never expire.
type Memory struct {
	c *gocache.Cache
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) SetOption(_ context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.c.Set(key, value, gocache.NoExpiration)
	return nil
}

// SetOptions stores every entry of values.
func (m *Memory) SetOptions(ctx context.Context, values map[string]string) error {
	for k := range values {
		if k == "" {
			return ErrEmptyKey
		}
	}
	for k, v := range values {
		m.c.Set(k, v, gocache.NoExpiration)
	}
	return nil
}

func (m *Memory) GetOption(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) DeleteOption(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
