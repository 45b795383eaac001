package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/denisok6893-rgb/rental-matching/internal/cache"
	"github.com/denisok6893-rgb/rental-matching/internal/catalog"
	"github.com/denisok6893-rgb/rental-matching/internal/matching"
	"github.com/denisok6893-rgb/rental-matching/internal/storage"
)

func openStore(ctx context.Context) (*storage.SQLiteStore, error) {
	st, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// loadWeights reads the configured weights file, falling back to the defaults.
func loadWeights() matching.Weights {
	path := cfg.Matching.WeightsPath
	if path == "" {
		return matching.DefaultWeights()
	}
	w, err := matching.LoadWeightsFromFile(path)
	if err != nil {
		zlog.Warn("use default weights", zap.String("path", path), zap.Error(err))
	}
	return w
}

// buildEngine attaches the Redis match cache when enabled. The returned func
// releases the Redis client.
func buildEngine(ctx context.Context) (*matching.Engine, func()) {
	w := loadWeights()

	opts := []matching.Option{matching.WithLogger(zlog)}
	closer := func() {}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zlog.Warn("redis unavailable, match cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			mc := cache.NewMatchCache(cache.NewRedisKVStore(client), cfg.Redis.TTL, zlog)
			opts = append(opts, matching.WithCache(mc))
			closer = func() { _ = client.Close() }
			zlog.Info("match cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
		}
	}

	return matching.NewEngine(w, opts...), closer
}

func newCatalogClient() (*catalog.Client, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, errors.New("catalog.base_url is not configured (set RENTAL_CATALOG_BASE_URL)")
	}
	return catalog.NewClient(catalog.Config{
		BaseURL:    cfg.Catalog.BaseURL,
		Token:      cfg.Catalog.Token,
		Timeout:    cfg.Catalog.Timeout,
		PageSize:   cfg.Catalog.PageSize,
		MaxPages:   cfg.Catalog.MaxPages,
		RetryCount: cfg.Catalog.RetryCount,
	}, zlog), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
