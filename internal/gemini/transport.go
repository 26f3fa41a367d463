package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/rewrite"
)

// Transport подключает Gemini к движку переписывания. Ответ модели
// заворачивается в конверт {"response": "..."}, а лимиты превращаются в статус 429,
// чтобы движок обработал их так же, как ответы HTTP-провайдера.
type Transport struct {
	gen        TextGenerator
	maxRetries int
	baseDelay  time.Duration
	sleep      rewrite.Sleeper
	logger     *slog.Logger
}

var _ rewrite.Transport = (*Transport)(nil)

// NewTransport создаёт транспорт. sleep == nil означает обычное ожидание по таймеру.
func NewTransport(gen TextGenerator, maxRetries int, baseDelay time.Duration, sleep rewrite.Sleeper, logger *slog.Logger) *Transport {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}
	return &Transport{
		gen:        gen,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleep,
		logger:     logging.OrDefault(logger),
	}
}

// Complete реализует rewrite.Transport.
// Временные ошибки (500/502/503/504) повторяются с растущей паузой.
func (t *Transport) Complete(ctx context.Context, req rewrite.Request) (*rewrite.Response, error) {
	var lastErr error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		if attempt > 0 {
			delay := t.baseDelay * time.Duration(attempt)
			t.logger.Info("retrying gemini request", "attempt", attempt+1, "max", t.maxRetries, "delay", delay)
			t.sleep(ctx, delay)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text, err := t.gen.GenerateText(ctx, req.Model, req.System, req.User)
		if err == nil {
			body, marshalErr := json.Marshal(map[string]string{"response": text})
			if marshalErr != nil {
				return nil, fmt.Errorf("marshal gemini response: %w", marshalErr)
			}
			return &rewrite.Response{StatusCode: http.StatusOK, Body: body}, nil
		}

		lastErr = err
		status := classify(err)
		switch {
		case status == http.StatusTooManyRequests:
			// Лимиты не повторяем: для одного поста быстрее уйти в эвристику.
			t.logger.Warn("gemini rate limit reached", "error", err)
			return &rewrite.Response{StatusCode: status, Body: []byte(err.Error())}, nil
		case status >= http.StatusInternalServerError:
			t.logger.Warn("temporary gemini error", "error", err, "status", status)
			continue
		case status == http.StatusForbidden:
			return &rewrite.Response{StatusCode: status, Body: []byte(err.Error())}, nil
		}

		return nil, fmt.Errorf("generate content: %w", err)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// statusMarkers сопоставляет фрагменты текста ошибки SDK со статусом, который
// увидит движок. Порядок важен: лимиты проверяются раньше серверных ошибок.
var statusMarkers = []struct {
	status  int
	markers []string
}{
	{http.StatusTooManyRequests, []string{"429", "rate limit", "too many requests", "resource exhausted", "resource has been exhausted"}},
	{http.StatusServiceUnavailable, []string{"503", "service unavailable", "overloaded"}},
	{http.StatusInternalServerError, []string{"500", "502", "504", "internal server error", "bad gateway", "gateway timeout"}},
	{http.StatusForbidden, []string{"403", "quota", "daily limit"}},
}

// classify возвращает HTTP-статус для ошибки Gemini или 0, если ошибка не распознана.
func classify(err error) int {
	msg := strings.ToLower(err.Error())
	for _, m := range statusMarkers {
		for _, marker := range m.markers {
			if strings.Contains(msg, marker) {
				return m.status
			}
		}
	}
	return 0
}
