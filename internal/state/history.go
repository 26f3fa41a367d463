package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

// JSONHistory - журнал публикаций в виде JSON-массива.
type JSONHistory struct {
	file   *JSONFile[[]manga.PostHistoryEntry]
	logger *slog.Logger
}

// NewJSONHistory создаёт журнал поверх файла path.
func NewJSONHistory(path string, logger *slog.Logger) *JSONHistory {
	return &JSONHistory{
		file:   NewJSONFile[[]manga.PostHistoryEntry](path),
		logger: logging.OrDefault(logger),
	}
}

// Append дописывает запись в конец журнала.
func (h *JSONHistory) Append(ctx context.Context, entry manga.PostHistoryEntry) error {
	entries, err := h.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if err := h.file.Save(ctx, entries); err != nil {
		return fmt.Errorf("save post history: %w", err)
	}
	return nil
}

// Since возвращает записи не старше since в порядке добавления.
func (h *JSONHistory) Since(ctx context.Context, since time.Time) ([]manga.PostHistoryEntry, error) {
	entries, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	recent := make([]manga.PostHistoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			recent = append(recent, e)
		}
	}
	return recent, nil
}

// Close реализует общий интерфейс хранилищ истории.
func (h *JSONHistory) Close() error {
	return nil
}

// Отсутствующий или повреждённый журнал считается пустым.
func (h *JSONHistory) load(ctx context.Context) ([]manga.PostHistoryEntry, error) {
	entries, err := h.file.Load(ctx)
	switch {
	case err == nil:
		return entries, nil
	case errors.Is(err, ErrNotExist):
		return nil, nil
	case errors.Is(err, ErrCorrupt):
		h.logger.Warn("post history is corrupt, starting empty", "path", h.file.Path(), "error", err)
		return nil, nil
	default:
		return nil, fmt.Errorf("load post history: %w", err)
	}
}
