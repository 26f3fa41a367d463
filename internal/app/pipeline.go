package app

import (
	"context"
	"errors"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/posting"
)

// ErrNotConfigured возвращается, когда пайплайн запущен без обязательных зависимостей.
var ErrNotConfigured = errors.New("pipeline dependencies not configured")

// ErrNothingToPost - текущий пост ещё не выбран (нет current_post.json).
var ErrNothingToPost = errors.New("no current post selected")

// Clock определяет источник времени (удобно подменять в тестах).
type Clock func() time.Time

// Mode задаёт режим отбора.
type Mode int

const (
	// ModeSingle выбирает один товар по курсору.
	ModeSingle Mode = iota
	// ModeAll переписывает и сохраняет весь список без курсора.
	ModeAll
)

// ListingCollector опрашивает источники партнёрского API.
type ListingCollector interface {
	Collect(ctx context.Context) map[manga.Source][]manga.RawListing
}

// Filter отбирает товары и дополняет их производными полями.
type Filter interface {
	Apply(items []manga.MergedItem, today time.Time) []manga.MergedItem
	Qualify(items []manga.MergedItem) []manga.EligibleItem
}

// Rewriter переписывает текст поста. Ошибок не возвращает: при сбое отдаёт запасной текст.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) string
}

// Linker строит партнёрские ссылки для отбора и для публикации.
type Linker interface {
	Build(rawURL string) string
	ForPosting(link string) string
}

// Store хранит одно JSON-значение.
type Store[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, value T) error
}

// CursorStore хранит индекс последнего выбранного товара.
type CursorStore interface {
	Next(ctx context.Context) (int, error)
	Save(ctx context.Context, index int) error
	Reset(ctx context.Context) error
}

// DuplicateGuard решает, можно ли публиковать заголовок.
type DuplicateGuard interface {
	Check(ctx context.Context, title string) (posting.Decision, error)
}

// Publisher отправляет текст в X.
type Publisher interface {
	Publish(ctx context.Context, text string) (posting.Receipt, error)
}

// HistoryWriter дописывает журнал публикаций.
type HistoryWriter interface {
	Append(ctx context.Context, entry manga.PostHistoryEntry) error
}
