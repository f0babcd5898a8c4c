// Package localfs wraps a user-granted directory as a capability that the
// importer, mirror and local write path operate on.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"yarny/internal/domain"
)

// ErrPickerCanceled is returned by a Picker when the user dismissed it.
var ErrPickerCanceled = errors.New("directory picker canceled")

// Handle is a granted directory. All paths passed to FS are relative to the
// directory and use forward slashes.
type Handle struct {
	Name string
	Path string
	FS   billy.Filesystem
}

// New wraps an arbitrary filesystem, typically memfs in tests.
func New(name string, fs billy.Filesystem) *Handle {
	return &Handle{Name: name, FS: fs}
}

// OpenOS grants access to a directory on the host filesystem. The directory
// must exist.
func OpenOS(dir string) (*Handle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if IsPermission(err) {
			return nil, &domain.PermissionError{Message: fmt.Sprintf("access to %s was denied", abs)}
		}
		if IsNotFound(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("directory %s does not exist", abs)}
		}
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("%s is not a directory", abs)}
	}
	return &Handle{
		Name: filepath.Base(abs),
		Path: abs,
		FS:   osfs.New(abs),
	}, nil
}

// Picker asks the user for a directory.
type Picker interface {
	Pick(ctx context.Context) (string, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (string, error)

func (f PickerFunc) Pick(ctx context.Context) (string, error) { return f(ctx) }

// Request runs the picker and opens the chosen directory. A canceled picker
// is not an error: it returns nil, nil.
func Request(ctx context.Context, picker Picker) (*Handle, error) {
	dir, err := picker.Pick(ctx)
	if err != nil {
		if errors.Is(err, ErrPickerCanceled) || errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, fmt.Errorf("pick directory: %w", err)
	}
	if dir == "" {
		return nil, nil
	}
	return OpenOS(dir)
}

// IsNotFound reports whether err means a file or directory is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// IsPermission reports whether err means access was denied.
func IsPermission(err error) bool {
	return errors.Is(err, os.ErrPermission) || errors.Is(err, domain.ErrPermission)
}
