package rewrite

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/metrics"
)

// Исходы запроса для метрик и логов.
const (
	OutcomeRewritten      = "rewritten"
	OutcomeRateLimited    = "rate_limited"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeUnknownShape   = "unknown_shape"
)

// Prompt описывает модель и промпты выбранного провайдера.
// UserTemplate содержит плейсхолдер {text}.
type Prompt struct {
	Model        string
	System       string
	UserTemplate string
}

// Sleeper ждёт d или отмены контекста.
type Sleeper func(ctx context.Context, d time.Duration)

// Engine переписывает шаблонный текст поста. Rewrite никогда не возвращает ошибку:
// при любом сбое сервиса текст собирается эвристикой Extract.
type Engine struct {
	transport     Transport
	prompt        Prompt
	courtesyDelay time.Duration
	sleep         Sleeper
	rng           *rand.Rand
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option настраивает Engine.
type Option func(*Engine)

// WithSleeper подменяет ожидание (в тестах).
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// WithRand задаёт источник случайности.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine создаёт движок поверх транспорта.
func NewEngine(transport Transport, prompt Prompt, cfg config.Rewrite, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		transport:     transport,
		prompt:        prompt,
		courtesyDelay: cfg.CourtesyDelay,
		sleep:         sleepContext,
		rng:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger:        logging.OrDefault(logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rewrite отправляет text в модель и возвращает короткий пост с хэштегом и #PR.
func (e *Engine) Rewrite(ctx context.Context, text string) string {
	req := Request{
		Model:  e.prompt.Model,
		System: e.prompt.System,
		User:   strings.ReplaceAll(e.prompt.UserTemplate, "{text}", text),
	}

	resp, err := e.transport.Complete(ctx, req)
	if err != nil {
		e.logger.Warn("rewrite request failed, using fallback", "error", err)
		return e.fallback(text, OutcomeTransportError)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.logger.Warn("rewrite quota exceeded, using fallback", "status", resp.StatusCode)
		return e.fallback(text, OutcomeRateLimited)
	case resp.StatusCode != http.StatusOK:
		e.logger.Warn("rewrite service error, using fallback", "status", resp.StatusCode, "body", preview(string(resp.Body), 500))
		return e.fallback(text, OutcomeHTTPError)
	}

	raw, shape, ok := UnwrapEnvelope(resp.Body)
	if !ok {
		e.logger.Warn("unknown rewrite response shape, using fallback", "body", preview(string(resp.Body), 500))
		return e.fallback(text, OutcomeUnknownShape)
	}
	e.logger.Debug("rewrite response received", "shape", shape, "raw", preview(raw, 100))

	rewritten := Extract(raw, text, e.rng)
	e.metrics.IncRewrite(OutcomeRewritten)
	e.logger.Info("post text rewritten", "model", e.prompt.Model, "text", preview(rewritten, 100))

	if e.courtesyDelay > 0 {
		e.sleep(ctx, e.courtesyDelay)
	}
	return rewritten
}

func (e *Engine) fallback(original, outcome string) string {
	e.metrics.IncRewrite(outcome)
	return Extract("", original, e.rng)
}

func sleepContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
