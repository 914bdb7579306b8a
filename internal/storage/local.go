package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge    = errors.New("file exceeds size limit")
	ErrInvalidName = errors.New("invalid file name")
)

// LocalStore guarda binarios de adjuntos en un directorio y los publica bajo urlPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

// Save copia r a dir/name leyendo como mucho maxBytes. Si se pasa del limite
// borra el archivo parcial y devuelve ErrTooLarge.
func (s *LocalStore) Save(name string, r io.Reader, maxBytes int64) (int64, error) {
	path, err := s.path(name)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return 0, copyErr
	case closeErr != nil:
		_ = os.Remove(path)
		return 0, closeErr
	case maxBytes > 0 && written > maxBytes:
		_ = os.Remove(path)
		return 0, ErrTooLarge
	}
	return written, nil
}

// Delete es idempotente: un archivo inexistente no es error.
func (s *LocalStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(name string) string {
	return s.urlPrefix + "/" + name
}

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}
