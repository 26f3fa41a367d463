package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/formatter"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/posting"
	"github.com/maine/manga_affiliate_bot/internal/state"
)

// PosterDeps перечисляет зависимости публикации.
type PosterDeps struct {
	CurrentStore Store[manga.SelectionRecord]
	Guard        DuplicateGuard
	Publisher    Publisher
	History      HistoryWriter
	Linker       Linker
	Clock        Clock
	Logger       *slog.Logger
}

// PostResult описывает итог публикации.
type PostResult struct {
	Skipped bool
	TweetID string
	Text    string
}

// Poster публикует текущий выбранный пост и записывает его в журнал.
type Poster struct {
	currentStore Store[manga.SelectionRecord]
	guard        DuplicateGuard
	publisher    Publisher
	history      HistoryWriter
	linker       Linker
	clock        Clock
	logger       *slog.Logger
}

// NewPoster создаёт новый экземпляр.
func NewPoster(deps PosterDeps) *Poster {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Poster{
		currentStore: deps.CurrentStore,
		guard:        deps.Guard,
		publisher:    deps.Publisher,
		history:      deps.History,
		linker:       deps.Linker,
		clock:        clock,
		logger:       logging.OrDefault(deps.Logger),
	}
}

// Current загружает выбранный пост.
func (p *Poster) Current(ctx context.Context) (manga.SelectionRecord, error) {
	if p.currentStore == nil {
		return manga.SelectionRecord{}, ErrNotConfigured
	}
	record, err := p.currentStore.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotExist) {
			return manga.SelectionRecord{}, fmt.Errorf("%w: %v", ErrNothingToPost, err)
		}
		return manga.SelectionRecord{}, fmt.Errorf("load current post: %w", err)
	}
	if strings.TrimSpace(record.PostText) == "" {
		return manga.SelectionRecord{}, fmt.Errorf("%w: post text is empty", ErrNothingToPost)
	}
	return record, nil
}

// Transmission возвращает текст, который уйдёт в X: пост плюс ссылка для публикации.
func (p *Poster) Transmission(record manga.SelectionRecord) string {
	link := record.AffiliateURL
	if p.linker != nil {
		link = p.linker.ForPosting(link)
	}
	return formatter.BuildTransmission(record.PostText, link)
}

// Run публикует текущий пост. Если заголовок уже публиковался в окне
// дедупликации, запуск завершается без ошибки и без отправки.
func (p *Poster) Run(ctx context.Context) (PostResult, error) {
	if err := p.validateDeps(); err != nil {
		return PostResult{}, err
	}

	record, err := p.Current(ctx)
	if err != nil {
		return PostResult{}, err
	}

	decision, err := p.guard.Check(ctx, record.Title)
	if err != nil {
		return PostResult{}, fmt.Errorf("check duplicates: %w", err)
	}
	if decision == posting.Skip {
		p.logger.Info("post skipped as recent duplicate", "title", record.Title)
		return PostResult{Skipped: true}, nil
	}

	receipt, err := p.publisher.Publish(ctx, p.Transmission(record))
	if err != nil {
		return PostResult{}, err
	}

	entry := manga.PostHistoryEntry{
		Title:     record.Title,
		PostText:  receipt.Text,
		TweetID:   receipt.TweetID,
		Timestamp: manga.Timestamp{Time: p.clock()},
	}
	if err := p.history.Append(ctx, entry); err != nil {
		return PostResult{}, fmt.Errorf("append history (tweet %s already published): %w", receipt.TweetID, err)
	}

	return PostResult{TweetID: receipt.TweetID, Text: receipt.Text}, nil
}

func (p *Poster) validateDeps() error {
	switch {
	case p.currentStore == nil,
		p.guard == nil,
		p.publisher == nil,
		p.history == nil:
		return ErrNotConfigured
	default:
		return nil
	}
}
