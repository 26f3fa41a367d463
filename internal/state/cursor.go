package state

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Cursor хранит индекс последнего обработанного элемента списка отбора.
type Cursor struct {
	path string
}

// NewCursor создаёт курсор поверх текстового файла с одним числом.
func NewCursor(path string) *Cursor {
	return &Cursor{path: path}
}

// Next возвращает следующий индекс: сохранённый плюс один.
// Отсутствующий или повреждённый файл даёт 0.
func (c *Cursor) Next(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	last, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || last < 0 {
		return 0, nil
	}
	return last + 1, nil
}

// Save сохраняет индекс, который только что был обработан.
func (c *Cursor) Save(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("cursor index must be non-negative, got %d", index)
	}
	return writeAtomic(c.path, []byte(strconv.Itoa(index)))
}

// Reset возвращает курсор в начало: следующий Next вернёт 0.
func (c *Cursor) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}
