package main

import (
	"fmt"
	"os"
	"path/filepath"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/store"
	"github.com/redis/go-redis/v9"
)

func openStore(opts *options) (goOIDC.SettingsStore, func(), error) {
	switch opts.store {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "file":
		return store.NewFile(opts.storePath), func() {}, nil
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{opts.redisAddr},
		})
		return store.NewRedis(client, envOr("GOIDC_REDIS_PREFIX", store.DefaultRedisPrefix)), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q (want memory, file or redis)", opts.store)
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "goidc-settings.yaml"
	}
	return filepath.Join(dir, "goidc", "settings.yaml")
}
