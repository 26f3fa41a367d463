package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics объединяет счётчики Prometheus для одного запуска пайплайна.
type Metrics struct {
	Registry         *prometheus.Registry
	ListingsFetched  *prometheus.CounterVec
	SourceFailures   *prometheus.CounterVec
	EligibleItems    prometheus.Gauge
	RewriteOutcomes  *prometheus.CounterVec
	PostAttempts     *prometheus.CounterVec
	DuplicateRetries prometheus.Counter
}

// New создаёт и регистрирует все метрики в отдельном реестре.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetched := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangabot_listings_fetched_total",
			Help: "Listings returned by the affiliate API per query.",
		},
		[]string{"source"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangabot_source_failures_total",
			Help: "Affiliate queries degraded to an empty result.",
		},
		[]string{"source"},
	)
	eligible := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mangabot_eligible_items",
			Help: "Items that passed all selection rules in the last run.",
		},
	)
	rewrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangabot_rewrite_outcomes_total",
			Help: "Rewrite calls by outcome.",
		},
		[]string{"outcome"},
	)
	posts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mangabot_post_attempts_total",
			Help: "Posting attempts by result.",
		},
		[]string{"result"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mangabot_duplicate_retries_total",
			Help: "Retries caused by duplicate-content rejections.",
		},
	)

	registry.MustRegister(fetched, failures, eligible, rewrites, posts, duplicates)

	return &Metrics{
		Registry:         registry,
		ListingsFetched:  fetched,
		SourceFailures:   failures,
		EligibleItems:    eligible,
		RewriteOutcomes:  rewrites,
		PostAttempts:     posts,
		DuplicateRetries: duplicates,
	}
}

// AddFetched увеличивает счётчик полученных товаров.
func (m *Metrics) AddFetched(source string, n int) {
	if m == nil {
		return
	}
	m.ListingsFetched.WithLabelValues(source).Add(float64(n))
}

// IncSourceFailure отмечает деградировавший источник.
func (m *Metrics) IncSourceFailure(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

// SetEligible фиксирует размер списка отобранных товаров.
func (m *Metrics) SetEligible(n int) {
	if m == nil {
		return
	}
	m.EligibleItems.Set(float64(n))
}

// IncRewrite отмечает результат переписывания.
func (m *Metrics) IncRewrite(outcome string) {
	if m == nil {
		return
	}
	m.RewriteOutcomes.WithLabelValues(outcome).Inc()
}

// IncPost отмечает попытку публикации.
func (m *Metrics) IncPost(result string) {
	if m == nil {
		return
	}
	m.PostAttempts.WithLabelValues(result).Inc()
}

// IncDuplicateRetry отмечает повтор из-за дубликата.
func (m *Metrics) IncDuplicateRetry() {
	if m == nil {
		return
	}
	m.DuplicateRetries.Inc()
}

// Push отправляет реестр в Pushgateway. Пустой url - no-op.
func (m *Metrics) Push(url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
