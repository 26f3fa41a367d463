package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/filter"
	"github.com/maine/manga_affiliate_bot/internal/formatter"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/merge"
	"github.com/maine/manga_affiliate_bot/internal/metrics"
	"github.com/maine/manga_affiliate_bot/internal/state"
)

const (
	topDiscountRate  = 50
	topDiscountLimit = 5
)

// SelectorDeps перечисляет зависимости отбора.
type SelectorDeps struct {
	Collector ListingCollector
	Filter    Filter
	Linker    Linker
	// Rewriter может быть nil: тогда в пост попадает шаблонный текст.
	Rewriter Rewriter
	// BulkRewriter используется в ModeAll; по умолчанию Rewriter.
	BulkRewriter Rewriter

	RawStore       Store[[]manga.MergedItem]
	SaleStore      Store[[]manga.SaleItem]
	SelectionStore Store[[]manga.SelectionRecord]
	CurrentStore   Store[manga.SelectionRecord]
	Cursor         CursorStore

	Clock    Clock
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// SelectResult описывает итог одного запуска отбора.
type SelectResult struct {
	Selected int
	Index    int
	Current  *manga.SelectionRecord
	Wrapped  bool
}

// Selector собирает, фильтрует и выбирает следующий товар для публикации.
type Selector struct {
	collector      ListingCollector
	filter         Filter
	linker         Linker
	rewriter       Rewriter
	bulkRewriter   Rewriter
	rawStore       Store[[]manga.MergedItem]
	saleStore      Store[[]manga.SaleItem]
	selectionStore Store[[]manga.SelectionRecord]
	currentStore   Store[manga.SelectionRecord]
	cursor         CursorStore
	clock          Clock
	location       *time.Location
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewSelector создаёт новый экземпляр.
func NewSelector(deps SelectorDeps) *Selector {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	bulk := deps.BulkRewriter
	if bulk == nil {
		bulk = deps.Rewriter
	}

	return &Selector{
		collector:      deps.Collector,
		filter:         deps.Filter,
		linker:         deps.Linker,
		rewriter:       deps.Rewriter,
		bulkRewriter:   bulk,
		rawStore:       deps.RawStore,
		saleStore:      deps.SaleStore,
		selectionStore: deps.SelectionStore,
		currentStore:   deps.CurrentStore,
		cursor:         deps.Cursor,
		clock:          clock,
		location:       loc,
		logger:         logging.OrDefault(deps.Logger),
		metrics:        deps.Metrics,
	}
}

// Fetch опрашивает источники, сливает результаты и сохраняет сырой список и список скидок.
func (s *Selector) Fetch(ctx context.Context) ([]manga.MergedItem, error) {
	if s.collector == nil || s.rawStore == nil {
		return nil, ErrNotConfigured
	}

	s.logger.Info("step 1: collecting listings")
	merged := merge.Merge(s.collector.Collect(ctx))
	s.logger.Info("listings merged", "items", len(merged))

	if err := s.rawStore.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save raw listings: %w", err)
	}

	sale := filter.SaleList(merged)
	if s.saleStore != nil {
		if err := s.saleStore.Save(ctx, sale); err != nil {
			return nil, fmt.Errorf("save sale list: %w", err)
		}
	}
	s.logSale(sale)

	return merged, nil
}

// SelectStored выполняет отбор по ранее сохранённому сырому списку.
func (s *Selector) SelectStored(ctx context.Context, mode Mode) (SelectResult, error) {
	if s.rawStore == nil {
		return SelectResult{}, ErrNotConfigured
	}
	items, err := s.rawStore.Load(ctx)
	if err != nil {
		if errors.Is(err, state.ErrNotExist) {
			return SelectResult{}, fmt.Errorf("raw listings not fetched yet: %w", err)
		}
		return SelectResult{}, fmt.Errorf("load raw listings: %w", err)
	}
	return s.Select(ctx, items, mode)
}

// Run выполняет Fetch и Select подряд.
func (s *Selector) Run(ctx context.Context, mode Mode) (SelectResult, error) {
	items, err := s.Fetch(ctx)
	if err != nil {
		return SelectResult{}, err
	}
	return s.Select(ctx, items, mode)
}

// Select фильтрует items, сохраняет список отобранного и в ModeSingle выбирает
// товар по курсору. Когда курсор выходит за конец списка, он сбрасывается и
// запуск завершается без выбора; следующий запуск начнёт с начала.
func (s *Selector) Select(ctx context.Context, items []manga.MergedItem, mode Mode) (SelectResult, error) {
	if err := s.validateDeps(mode); err != nil {
		return SelectResult{}, err
	}

	today := s.clock().In(s.location)

	s.logger.Info("step 2: filtering", "items", len(items))
	eligible := s.filter.Qualify(s.filter.Apply(items, today))
	s.metrics.SetEligible(len(eligible))
	s.logger.Info("filtering done", "eligible", len(eligible))

	records := make([]manga.SelectionRecord, 0, len(eligible))
	for _, item := range eligible {
		records = append(records, s.record(item))
	}

	if mode == ModeAll {
		return s.selectAll(ctx, records)
	}

	if err := s.selectionStore.Save(ctx, records); err != nil {
		return SelectResult{}, fmt.Errorf("save selection: %w", err)
	}

	result := SelectResult{Selected: len(records)}
	if len(records) == 0 {
		s.logger.Info("nothing to post this run")
		return result, nil
	}

	next, err := s.cursor.Next(ctx)
	if err != nil {
		return result, fmt.Errorf("read cursor: %w", err)
	}
	if next >= len(records) {
		if err := s.cursor.Reset(ctx); err != nil {
			return result, fmt.Errorf("reset cursor: %w", err)
		}
		s.logger.Info("cursor reached end of list, starting over next run", "cursor", next, "selected", len(records))
		result.Wrapped = true
		return result, nil
	}

	current := records[next]
	if s.rewriter != nil {
		s.logger.Info("step 3: rewriting post", "title", current.Title)
		current.PostText = s.rewriter.Rewrite(ctx, current.PostText)
	}

	if err := s.currentStore.Save(ctx, current); err != nil {
		return result, fmt.Errorf("save current post: %w", err)
	}
	if err := s.cursor.Save(ctx, next); err != nil {
		return result, fmt.Errorf("save cursor: %w", err)
	}

	s.logger.Info("post selected", "index", next, "title", current.Title)
	result.Index = next
	result.Current = &current
	return result, nil
}

func (s *Selector) selectAll(ctx context.Context, records []manga.SelectionRecord) (SelectResult, error) {
	if s.bulkRewriter != nil {
		s.logger.Info("step 3: rewriting all posts", "count", len(records))
		for i := range records {
			records[i].PostText = s.bulkRewriter.Rewrite(ctx, records[i].PostText)
		}
	}
	if err := s.selectionStore.Save(ctx, records); err != nil {
		return SelectResult{}, fmt.Errorf("save selection: %w", err)
	}
	s.logger.Info("selection saved", "count", len(records))
	return SelectResult{Selected: len(records)}, nil
}

func (s *Selector) record(item manga.EligibleItem) manga.SelectionRecord {
	link := item.AffiliateURL
	if link == "" {
		link = item.URL
	}
	return manga.SelectionRecord{
		Title:        item.Title,
		AffiliateURL: s.linker.Build(link),
		PostText:     formatter.Compose(item),
		Author:       item.AuthorName(),
	}
}

func (s *Selector) logSale(sale []manga.SaleItem) {
	if len(sale) == 0 {
		s.logger.Info("no discounted items")
		return
	}
	maxRate := 0
	for _, item := range sale {
		maxRate = max(maxRate, item.DiscountRate)
	}
	s.logger.Info("sale list saved", "items", len(sale), "max_discount", maxRate)
	for _, item := range filter.TopDiscounts(sale, topDiscountRate, topDiscountLimit) {
		s.logger.Info("top discount", "title", item.Title, "discount", item.DiscountInfo)
	}
}

func (s *Selector) validateDeps(mode Mode) error {
	switch {
	case s.filter == nil,
		s.linker == nil,
		s.selectionStore == nil:
		return ErrNotConfigured
	case mode == ModeSingle && (s.cursor == nil || s.currentStore == nil):
		return ErrNotConfigured
	default:
		return nil
	}
}
