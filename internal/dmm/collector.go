package dmm

import (
	"context"
	"log/slog"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/filter"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/metrics"
)

// Lister - минимальный интерфейс партнёрского API, нужный коллектору.
type Lister interface {
	ItemList(ctx context.Context, q Query) ([]manga.RawListing, error)
}

// Collector загружает товары из пяти запросов: три рейтинга, новинки и сортировка по цене.
type Collector struct {
	lister         Lister
	newReleaseDays int
	clock          func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewCollector создаёт новый экземпляр.
func NewCollector(lister Lister, newReleaseDays int, clock func() time.Time, logger *slog.Logger, m *metrics.Metrics) *Collector {
	if clock == nil {
		clock = time.Now
	}
	if newReleaseDays <= 0 {
		newReleaseDays = 7
	}
	return &Collector{
		lister:         lister,
		newReleaseDays: newReleaseDays,
		clock:          clock,
		logger:         logging.OrDefault(logger),
		metrics:        m,
	}
}

// Queries возвращает параметры запроса для каждого источника.
func (c *Collector) Queries() map[manga.Source]Query {
	since := c.clock().AddDate(0, 0, -c.newReleaseDays)
	since = time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, since.Location())

	return map[manga.Source]Query{
		manga.SourceDaily:   {Sort: "rank", Period: "day"},
		manga.SourceWeekly:  {Sort: "rank", Period: "week"},
		manga.SourceMonthly: {Sort: "rank", Period: "month"},
		manga.SourceNewest:  {Sort: "date", GteDate: since},
		manga.SourcePrice:   {Sort: "price"},
	}
}

// Collect опрашивает все источники по порядку manga.SourceOrder.
// Ошибка одного источника превращается в пустой результат и не прерывает остальные.
func (c *Collector) Collect(ctx context.Context) map[manga.Source][]manga.RawListing {
	queries := c.Queries()
	results := make(map[manga.Source][]manga.RawListing, len(queries))

	for _, source := range manga.SourceOrder {
		items, err := c.lister.ItemList(ctx, queries[source])
		if err != nil {
			c.logger.Warn("affiliate query degraded to empty result", "source", source, "error", err)
			c.metrics.IncSourceFailure(string(source))
			results[source] = nil
			continue
		}

		c.metrics.AddFetched(string(source), len(items))
		if source == manga.SourcePrice {
			c.logger.Info("affiliate query done", "source", source, "items", len(items), "discounted", countDiscounted(items))
		} else {
			c.logger.Info("affiliate query done", "source", source, "items", len(items))
		}
		results[source] = items
	}
	return results
}

func countDiscounted(items []manga.RawListing) int {
	n := 0
	for _, item := range items {
		if _, ok := filter.Discount(item); ok {
			n++
		}
	}
	return n
}
