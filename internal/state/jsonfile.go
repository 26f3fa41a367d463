package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotExist возвращается, когда файла состояния ещё нет.
	ErrNotExist = errors.New("state file does not exist")
	// ErrCorrupt возвращается, когда содержимое файла не разбирается как JSON.
	// Повреждённый файл сохраняется рядом с суффиксом .broken.
	ErrCorrupt = errors.New("state file is corrupt")
)

// JSONFile хранит одно значение типа T в JSON-файле.
type JSONFile[T any] struct {
	path string
}

// NewJSONFile создаёт стор поверх файла path.
func NewJSONFile[T any](path string) *JSONFile[T] {
	return &JSONFile[T]{path: path}
}

// Path возвращает путь к файлу.
func (f *JSONFile[T]) Path() string {
	return f.path
}

// Load читает значение из файла.
func (f *JSONFile[T]) Load(ctx context.Context) (T, error) {
	var value T
	if err := ctx.Err(); err != nil {
		return value, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return value, fmt.Errorf("%s: %w", f.path, ErrNotExist)
		}
		return value, fmt.Errorf("read %s: %w", f.path, err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		// Копия для диагностики, сам файл перезапишется следующим Save.
		_ = os.WriteFile(f.path+".broken", data, 0644)
		var zero T
		return zero, fmt.Errorf("%s: %w: %v", f.path, ErrCorrupt, err)
	}
	return value, nil
}

// Save записывает значение атомарно (через временный файл).
func (f *JSONFile[T]) Save(ctx context.Context, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(f.path), err)
	}
	return writeAtomic(f.path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// Переименование атомарно на большинстве файловых систем.
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
