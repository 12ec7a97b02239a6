package sheet

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Options carries backend-agnostic open parameters.
type Options struct {
	// Path is the workbook file (xlsx) or directory (csv).
	Path string
	// Encoding names the character encoding of text backends, e.g.
	// "windows-1252". Empty means UTF-8.
	Encoding string
	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune
	// Create allows opening a workbook that does not exist yet; it is created
	// on the first write.
	Create bool
}

// OpenFunc opens a workbook for one backend kind.
type OpenFunc func(ctx context.Context, opts Options) (Workbook, error)

var (
	mu       sync.RWMutex
	backends = map[string]OpenFunc{}
)

// Register makes a backend available under kind. It is called from backend
// packages' init functions; registering a kind twice replaces the former.
func Register(kind string, fn OpenFunc) {
	mu.Lock()
	defer mu.Unlock()
	backends[kind] = fn
}

// Open opens a workbook of the given kind.
func Open(ctx context.Context, kind string, opts Options) (Workbook, error) {
	mu.RLock()
	fn, ok := backends[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sheet: no backend registered for kind %q (known: %v)", kind, Kinds())
	}
	return fn(ctx, opts)
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
