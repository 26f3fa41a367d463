package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/metrics"
	"github.com/maine/manga_affiliate_bot/internal/xapi"
)

// ErrDuplicateRetriesExhausted - сервис отклонял все варианты текста как дубликаты.
var ErrDuplicateRetriesExhausted = errors.New("duplicate content retries exhausted")

// Результаты публикации для метрик.
const (
	ResultPosted    = "posted"
	ResultFailed    = "failed"
	ResultExhausted = "duplicate_exhausted"
)

// Tweeter - часть клиента X, нужная для публикации.
type Tweeter interface {
	CreateTweet(ctx context.Context, text string) (xapi.Tweet, error)
}

// Sleeper ждёт d или отмены контекста.
type Sleeper func(ctx context.Context, d time.Duration)

// Receipt описывает успешную публикацию.
type Receipt struct {
	TweetID  string
	Text     string
	Attempts int
}

// Publisher отправляет пост. При отказе как дубликата текст варьируется и
// отправляется снова, не больше retries дополнительных попыток.
type Publisher struct {
	client  Tweeter
	retries int
	delay   time.Duration
	sleep   Sleeper
	clock   func() time.Time
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPublisher создаёт отправителя. sleep, clock и rng можно оставить nil.
func NewPublisher(client Tweeter, cfg config.Posting, sleep Sleeper, clock func() time.Time, rng *rand.Rand, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	retries := cfg.DuplicateRetries
	if retries < 0 {
		retries = 0
	}
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}
	if clock == nil {
		clock = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 1))
	}
	return &Publisher{
		client:  client,
		retries: retries,
		delay:   cfg.RetryDelay,
		sleep:   sleep,
		clock:   clock,
		rng:     rng,
		logger:  logging.OrDefault(logger),
		metrics: m,
	}
}

// Publish отправляет text. Любая ошибка, кроме отказа как дубликата, не повторяется.
func (p *Publisher) Publish(ctx context.Context, text string) (Receipt, error) {
	current := text
	var lastErr error

	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			if p.delay > 0 {
				p.sleep(ctx, p.delay)
			}
			if err := ctx.Err(); err != nil {
				return Receipt{}, err
			}
			current = Vary(text, p.clock(), p.rng)
			p.metrics.IncDuplicateRetry()
			p.logger.Info("retrying with varied text", "attempt", attempt+1, "max", p.retries+1)
		}

		tweet, err := p.client.CreateTweet(ctx, current)
		if err == nil {
			p.metrics.IncPost(ResultPosted)
			p.logger.Info("post published", "tweet_id", tweet.ID, "attempts", attempt+1)
			return Receipt{TweetID: tweet.ID, Text: current, Attempts: attempt + 1}, nil
		}

		var apiErr *xapi.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsDuplicateContent() {
			p.metrics.IncPost(ResultFailed)
			return Receipt{}, fmt.Errorf("publish post: %w", err)
		}

		lastErr = err
		p.logger.Warn("post rejected as duplicate content", "attempt", attempt+1)
	}

	p.metrics.IncPost(ResultExhausted)
	return Receipt{}, fmt.Errorf("%w after %d attempts: %v", ErrDuplicateRetriesExhausted, p.retries+1, lastErr)
}
