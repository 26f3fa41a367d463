package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/affiliate"
	"github.com/maine/manga_affiliate_bot/internal/app"
	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/dmm"
	"github.com/maine/manga_affiliate_bot/internal/filter"
	"github.com/maine/manga_affiliate_bot/internal/gemini"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/metrics"
	"github.com/maine/manga_affiliate_bot/internal/posting"
	"github.com/maine/manga_affiliate_bot/internal/rewrite"
	"github.com/maine/manga_affiliate_bot/internal/state"
	"github.com/maine/manga_affiliate_bot/internal/storage/sqlite"
	"github.com/maine/manga_affiliate_bot/internal/xapi"
)

// Файлы состояния внутри storage.dir.
const (
	rawFile       = "manga_data_raw.json"
	saleFile      = "sale_manga_data.json"
	selectionFile = "selected_manga.json"
	currentFile   = "current_post.json"
	cursorFile    = "last_processed_index.txt"
	historyJSON   = "post_history.json"
	historySQLite = "post_history.db"
)

// historyStore - журнал публикаций любого бэкенда.
type historyStore interface {
	posting.History
	Close() error
}

// runtime собирает зависимости одной команды из конфигурации и окружения.
type runtime struct {
	root    config.Root
	env     *config.EnvConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newRuntime(opts *Options) (*runtime, error) {
	root, err := config.LoadRoot(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config: %w", err)
	}

	level := root.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	return &runtime{
		root:    root,
		env:     config.LoadEnvConfig(),
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

func (r *runtime) path(name string) string {
	return filepath.Join(r.root.Storage.Dir, name)
}

func (r *runtime) now() time.Time {
	return time.Now().In(r.root.Pipeline.Location())
}

func (r *runtime) pushMetrics() {
	if err := r.metrics.Push(r.root.Metrics.PushgatewayURL, r.root.Metrics.Job); err != nil {
		r.logger.Warn("push metrics failed", "error", err)
	}
}

func (r *runtime) dmmClient() *dmm.Client {
	return dmm.NewClient(r.root.Affiliate, r.env.DMMAPIID, r.env.DMMAffiliateID, nil)
}

func (r *runtime) currentStore() *state.JSONFile[manga.SelectionRecord] {
	return state.NewJSONFile[manga.SelectionRecord](r.path(currentFile))
}

// rewriters возвращает движок для одиночного режима и кэширующую обёртку для пакетного.
// При выключенном переписывании оба nil.
func (r *runtime) rewriters(ctx context.Context) (app.Rewriter, app.Rewriter, error) {
	if !r.root.Rewrite.Enabled {
		r.logger.Info("rewrite disabled, template text will be posted")
		return nil, nil, nil
	}

	var transport rewrite.Transport
	switch r.root.Rewrite.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, r.env.GeminiAPIKey)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client: %w", err)
		}
		transport = gemini.NewTransport(client, 3, 2*time.Second, nil, r.logger)
	default:
		transport = rewrite.NewOpenRouter(r.root.Rewrite.Endpoint, r.env.OpenRouterAPIKey, r.root.Rewrite.Timeout, nil)
	}

	model, system, userTemplate := r.env.Prompt(r.root.Rewrite.Provider)
	engine := rewrite.NewEngine(transport, rewrite.Prompt{
		Model:        model,
		System:       system,
		UserTemplate: userTemplate,
	}, r.root.Rewrite, r.logger, rewrite.WithMetrics(r.metrics))

	cached, err := rewrite.NewCachedEngine(engine, r.root.Rewrite.CacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("create rewrite cache: %w", err)
	}
	return engine, cached, nil
}

func (r *runtime) selector(ctx context.Context) (*app.Selector, error) {
	single, bulk, err := r.rewriters(ctx)
	if err != nil {
		return nil, err
	}

	collector := dmm.NewCollector(r.dmmClient(), r.root.Pipeline.NewReleaseDays, r.now, r.logger, r.metrics)

	return app.NewSelector(app.SelectorDeps{
		Collector:      collector,
		Filter:         filter.New(r.root.Pipeline),
		Linker:         affiliate.NewLinker(r.env),
		Rewriter:       single,
		BulkRewriter:   bulk,
		RawStore:       state.NewJSONFile[[]manga.MergedItem](r.path(rawFile)),
		SaleStore:      state.NewJSONFile[[]manga.SaleItem](r.path(saleFile)),
		SelectionStore: state.NewJSONFile[[]manga.SelectionRecord](r.path(selectionFile)),
		CurrentStore:   r.currentStore(),
		Cursor:         state.NewCursor(r.path(cursorFile)),
		Location:       r.root.Pipeline.Location(),
		Logger:         r.logger,
		Metrics:        r.metrics,
	}), nil
}

func (r *runtime) openHistory() (historyStore, error) {
	if r.root.Storage.HistoryBackend == config.HistoryBackendSQLite {
		store, err := sqlite.Open(r.path(historySQLite), r.logger)
		if err != nil {
			return nil, fmt.Errorf("open post history: %w", err)
		}
		return store, nil
	}
	return state.NewJSONHistory(r.path(historyJSON), r.logger), nil
}

// poster собирает публикацию. Вызывающий закрывает возвращённый журнал.
func (r *runtime) poster(ctx context.Context) (*app.Poster, historyStore, error) {
	history, err := r.openHistory()
	if err != nil {
		return nil, nil, err
	}

	client := xapi.NewClient(ctx, r.root.Posting, xapi.CredentialsFromEnv(r.env))
	publisher := posting.NewPublisher(client, r.root.Posting, nil, nil, nil, r.logger, r.metrics)

	poster := app.NewPoster(app.PosterDeps{
		CurrentStore: r.currentStore(),
		Guard:        posting.NewGuard(history, r.root.Posting.DedupWindow, nil, r.logger),
		Publisher:    publisher,
		History:      history,
		Linker:       affiliate.NewLinker(r.env),
		Logger:       r.logger,
	})
	return poster, history, nil
}
