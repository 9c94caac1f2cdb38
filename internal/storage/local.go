package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage keeps files under a directory that the server exposes with
// router.Static. Meant for development and single-node deployments.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates root if needed. baseURL is the prefix files are
// served under, e.g. "/uploads".
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written under.
func (s *LocalStorage) Root() string {
	return s.root
}

// path maps key onto the filesystem. Keys must already be clean relative
// slash paths, which rules out escaping root.
func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || path.IsAbs(key) || path.Clean(key) != key || strings.HasPrefix(key, "../") || key == ".." {
		return "", ErrInvalidKey(key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put streams content into a temp file beside the target and renames it,
// so a half-written upload is never visible under key.
func (s *LocalStorage) Put(_ context.Context, key string, content io.Reader, _ string) (string, error) {
	dst, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", path.Dir(key), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, copyErr := io.Copy(tmp, content)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return s.URL(key), nil
}

// URL is where router.Static serves key.
func (s *LocalStorage) URL(key string) string {
	return s.baseURL + "/" + key
}
