// README: Disk-backed photo sink. Paths returned are relative to the
// upload root so the database never stores absolute host paths.
package disk

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "photos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	rel := filepath.Join("photos", filepath.Base(name))
	dst, err := os.Create(filepath.Join(s.root, rel))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return "", err
	}
	return rel, nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return os.Remove(filepath.Join(s.root, filepath.Clean(path)))
}
