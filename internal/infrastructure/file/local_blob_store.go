package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalBlobStore keeps uploaded import files on the local filesystem under
// BaseDir. The locator it hands out is the relative key, so records stay
// valid if the base directory moves.
type LocalBlobStore struct {
	BaseDir string
}

func NewLocalBlobStore(baseDir string) *LocalBlobStore {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalBlobStore{BaseDir: baseDir}
}

func (s *LocalBlobStore) Upload(ctx context.Context, key string, content io.Reader) (string, error) {
	_ = ctx

	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create blob %s: %w", key, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, content); err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return key, nil
}

func (s *LocalBlobStore) Download(ctx context.Context, locator string) (io.ReadCloser, error) {
	_ = ctx

	path, err := s.resolve(locator)
	if err != nil {
		return nil, err
	}

	blob, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", locator, err)
	}
	return blob, nil
}

func (s *LocalBlobStore) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "" || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.BaseDir, cleaned), nil
}
