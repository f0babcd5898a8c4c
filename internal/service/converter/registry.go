package converter

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	storySvc "yarny/internal/domain/services/story"
)

// Registry routes file content to a converter by extension.
//
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]storySvc.ContentConverter // key: lowercase extension with dot
}

// NewRegistry returns a registry with the markdown, text and HTML
// converters registered.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]storySvc.ContentConverter)}
	r.Register(NewMarkdownConverter())
	r.Register(NewTextConverter())
	r.Register(NewHTMLConverter())
	return r
}

// Register associates the converter with each of its extensions, replacing
// any earlier registration.
func (r *Registry) Register(c storySvc.ContentConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range c.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.converters[ext] = c
	}
}

// For returns the converter for ext, or nil.
func (r *Registry) For(ext string) storySvc.ContentConverter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.converters[strings.ToLower(ext)]
}

// Convert picks a converter from the filename's extension.
func (r *Registry) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	ext := path.Ext(filename)
	c := r.For(ext)
	if c == nil {
		return "", fmt.Errorf("unsupported file type: %q", ext)
	}
	return c.Convert(ctx, content)
}

// SupportedExtensions returns the registered extensions in sorted order.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.converters))
	for ext := range r.converters {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
