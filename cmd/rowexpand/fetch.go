package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"rowexpand/internal/config"
	"rowexpand/internal/datasource"
	"rowexpand/internal/datasource/httpds"
)

// downloadSource fetches a remote source workbook into a temporary
// directory. cleanup removes the directory.
func downloadSource(ctx context.Context, s config.Source, logger *zap.Logger) (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "rowexpand-")
	if err != nil {
		return "", nil, fmt.Errorf("download source: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	client := httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(s.Fetch.TimeoutSeconds) * time.Second,
		MaxRetries:         s.Fetch.MaxRetries,
		InsecureSkipVerify: s.Fetch.InsecureSkipVerify,
		Logger:             logger,
	})
	path = filepath.Join(dir, httpds.LocalName(s.Path, ".xlsx"))

	start := time.Now()
	n, err := datasource.Fetch(ctx, httpds.NewRemote(client, s.Path), path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("download source: %w", err)
	}
	logger.Info("run: source downloaded",
		zap.String("url", s.Path),
		zap.String("file", path),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)))
	return path, cleanup, nil
}
