package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// FileCamera serves frames from disk. A directory is served in name order,
// wrapping around after the last image.
type FileCamera struct {
	paths    []string
	maxWidth int
	now      func() time.Time

	mu   sync.Mutex
	next int
}

// NewFileCamera creates a camera over a single image or a directory of images.
func NewFileCamera(path string, maxWidth int) (*FileCamera, error) {
	if path == "" {
		return nil, errors.New("camera path is required for the file driver")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat camera path: %w", err)
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = ListImages(path)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images in %s", path)
		}
	}

	return &FileCamera{paths: paths, maxWidth: maxWidth, now: time.Now}, nil
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.Contains(imageExtensions, ext) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Capture implements Device.
func (c *FileCamera) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.mu.Lock()
	path := c.paths[c.next]
	c.next = (c.next + 1) % len(c.paths)
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	frame, err := NewFrame(data, c.maxWidth, c.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, filepath.Base(path), err)
	}
	return frame, nil
}
