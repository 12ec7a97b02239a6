// Package datasource resolves where a source workbook comes from. Local paths
// are used as they are; http(s) URLs are downloaded to a local file first so
// the workbook backends only ever see files.
package datasource

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source yields the bytes of one workbook.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsRemote reports whether path is an http or https URL.
func IsRemote(path string) bool {
	p := strings.ToLower(strings.TrimSpace(path))
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Fetch copies src into the file at dst and returns the number of bytes
// written. A partial file is removed on error.
func Fetch(ctx context.Context, src Source, dst string) (n int64, err error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("datasource: create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("datasource: close %s: %w", dst, cerr)
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	n, err = io.Copy(f, rc)
	if err != nil {
		return n, fmt.Errorf("datasource: copy to %s: %w", dst, err)
	}
	return n, nil
}
