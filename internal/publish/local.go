package publish

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalPublisher copies documents into a directory and links to them with
// file:// URLs. Used by the CLI when no bucket is configured.
type LocalPublisher struct {
	dir string
}

func NewLocalPublisher(dir string) *LocalPublisher {
	return &LocalPublisher{dir: dir}
}

func (p *LocalPublisher) Publish(_ context.Context, key string, body io.ReadSeeker, _ int64) (string, error) {
	if key == "" || filepath.Base(key) != key {
		return "", fmt.Errorf("local: invalid key %q", key)
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", fmt.Errorf("local: cannot create output folder: %w", err)
	}

	dst := filepath.Join(p.dir, key)
	abs, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("local: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(abs)
		return "", fmt.Errorf("local: writing %s: %w", abs, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("local: %w", err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
