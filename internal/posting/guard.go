// Package posting защищает от повторных публикаций и отправляет пост с
// повтором при отказе сервиса как дубликата.
package posting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
)

// History - журнал публикаций (JSON-файл или SQLite).
type History interface {
	Since(ctx context.Context, since time.Time) ([]manga.PostHistoryEntry, error)
	Append(ctx context.Context, entry manga.PostHistoryEntry) error
}

// Decision - результат проверки перед публикацией.
type Decision int

const (
	// Proceed - можно публиковать.
	Proceed Decision = iota
	// Skip - такое название уже публиковалось в пределах окна.
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "proceed"
}

// DefaultWindow - окно, в котором одно и то же название не публикуется повторно.
const DefaultWindow = 7 * 24 * time.Hour

// Guard проверяет журнал на недавние публикации того же названия.
// Сравнение идёт по точному совпадению строки.
type Guard struct {
	history History
	window  time.Duration
	clock   func() time.Time
	logger  *slog.Logger
}

// NewGuard создаёт проверку. Нулевое окно заменяется DefaultWindow.
func NewGuard(history History, window time.Duration, clock func() time.Time, logger *slog.Logger) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Guard{
		history: history,
		window:  window,
		clock:   clock,
		logger:  logging.OrDefault(logger),
	}
}

// Check возвращает Skip, если title публиковался за последние window.
func (g *Guard) Check(ctx context.Context, title string) (Decision, error) {
	since := g.clock().Add(-g.window)
	entries, err := g.history.Since(ctx, since)
	if err != nil {
		return Proceed, fmt.Errorf("read post history: %w", err)
	}

	for _, e := range entries {
		if e.Title == title {
			g.logger.Info("title was posted recently, skipping", "title", title, "posted_at", e.Timestamp.Format(manga.TimestampLayout))
			return Skip, nil
		}
	}
	return Proceed, nil
}
