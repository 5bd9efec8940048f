package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type optionStore interface {
	SetOption(ctx context.Context, key, value string) error
	SetOptions(ctx context.Context, values map[string]string) error
	GetOption(ctx context.Context, key string) (string, error)
	DeleteOption(ctx context.Context, key string) error
}

func newRedisStoreTest(t *testing.T) (*Redis, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(rdb, "test"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestStoresShareContract(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) (optionStore, func())
	}{
		{
			name: "memory",
			open: func(t *testing.T) (optionStore, func()) { return NewMemory(), func() {} },
		},
		{
			name: "file",
			open: func(t *testing.T) (optionStore, func()) {
				return NewFile(filepath.Join(t.TempDir(), "nested", "settings.yaml")), func() {}
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) (optionStore, func()) {
				s, _, done := newRedisStoreTest(t)
				return s, done
			},
		},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, done := b.open(t)
			defer done()
			ctx := context.Background()

			if _, err := s.GetOption(ctx, "access_token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := s.SetOption(ctx, "access_token", "tok"); err != nil {
				t.Fatalf("SetOption failed: %v", err)
			}
			if err := s.SetOption(ctx, "access_token", "tok-2"); err != nil {
				t.Fatalf("SetOption overwrite failed: %v", err)
			}
			if got, err := s.GetOption(ctx, "access_token"); err != nil || got != "tok-2" {
				t.Fatalf("expected tok-2, got %q (%v)", got, err)
			}

			if err := s.SetOptions(ctx, map[string]string{"a": "1", "user_info": `{"name":"alice","status":1}`}); err != nil {
				t.Fatalf("SetOptions failed: %v", err)
			}
			if got, _ := s.GetOption(ctx, "user_info"); got != `{"name":"alice","status":1}` {
				t.Fatalf("unexpected user_info %q", got)
			}

			if err := s.DeleteOption(ctx, "access_token"); err != nil {
				t.Fatalf("DeleteOption failed: %v", err)
			}
			if err := s.DeleteOption(ctx, "access_token"); err != nil {
				t.Fatalf("second DeleteOption failed: %v", err)
			}
			if _, err := s.GetOption(ctx, "access_token"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if got, _ := s.GetOption(ctx, "a"); got != "1" {
				t.Fatalf("delete removed unrelated key, a=%q", got)
			}

			if err := s.SetOption(ctx, "", "x"); !errors.Is(err, ErrEmptyKey) {
				t.Fatalf("expected ErrEmptyKey, got %v", err)
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	ctx := context.Background()

	first := NewFile(path)
	if err := first.SetOptions(ctx, map[string]string{"access_token": "tok", "user_info": "{}"}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected mode 0600, got %o", perm)
	}

	second := NewFile(path)
	if got, err := second.GetOption(ctx, "access_token"); err != nil || got != "tok" {
		t.Fatalf("expected tok from reopened file, got %q (%v)", got, err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a mapping\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := NewFile(path).GetOption(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRedisStoreKeyLayoutAndOutage(t *testing.T) {
	s, mr, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := s.SetOption(ctx, "access_token", "tok"); err != nil {
		t.Fatalf("SetOption failed: %v", err)
	}
	if got, err := mr.Get("test:opt:access_token"); err != nil || got != "tok" {
		t.Fatalf("expected raw key test:opt:access_token=tok, got %q (%v)", got, err)
	}
	if ttl := mr.TTL("test:opt:access_token"); ttl != 0 {
		t.Fatalf("expected no expiry, got %v", ttl)
	}

	mr.Close()
	if _, err := s.GetOption(ctx, "access_token"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after outage, got %v", err)
	}
}
