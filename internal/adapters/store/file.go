package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"aegis-intel/internal/domain"
)

// File хранит снимок в JSON-файле, перезаписывая его целиком.
type File struct {
	path string
}

var _ domain.SnapshotStore = (*File)(nil)

// NewFile создаёт файловое хранилище.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load читает снимок. Отсутствующий файл возвращается ошибкой, кэш считает её пустой загрузкой.
func (f *File) Load(ctx context.Context) ([]domain.IntelRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	return Decode(data)
}

// Save записывает снимок во временный файл и атомарно подменяет исходный.
func (f *File) Save(ctx context.Context, records []domain.IntelRecord) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".intel-*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
