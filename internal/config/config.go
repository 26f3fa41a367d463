package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Root объединяет все конфигурационные блоки (configs/pipeline.yaml).
	Root struct {
		Pipeline  Pipeline  `yaml:"pipeline"`
		Affiliate Affiliate `yaml:"affiliate"`
		Rewrite   Rewrite   `yaml:"rewrite"`
		Posting   Posting   `yaml:"posting"`
		Storage   Storage   `yaml:"storage"`
		Metrics   Metrics   `yaml:"metrics"`
		Logging   Logging   `yaml:"logging"`
	}

	// Pipeline описывает бизнес-правила отбора.
	Pipeline struct {
		Timezone          string `yaml:"timezone"`
		MinPrice          int    `yaml:"min_price"`
		NewReleaseDays    int    `yaml:"new_release_days"`
		MaxDailyRank      int    `yaml:"max_daily_rank"`
		MaxWeeklyRank     int    `yaml:"max_weekly_rank"`
		MaxMonthlyRank    int    `yaml:"max_monthly_rank"`
		SingleChapterMark string `yaml:"single_chapter_mark"`
		NovelMark         string `yaml:"novel_mark"`
	}

	// Affiliate содержит параметры запросов к партнёрскому API.
	Affiliate struct {
		Endpoint string        `yaml:"endpoint"`
		Site     string        `yaml:"site"`
		Service  string        `yaml:"service"`
		Floor    string        `yaml:"floor"`
		Hits     int           `yaml:"hits"`
		Timeout  time.Duration `yaml:"timeout"`
	}

	// Rewrite настраивает AI-переписывание текста.
	Rewrite struct {
		Enabled       bool          `yaml:"enabled"`
		Provider      string        `yaml:"provider"` // openrouter | gemini
		Endpoint      string        `yaml:"endpoint"`
		Timeout       time.Duration `yaml:"timeout"`
		CourtesyDelay time.Duration `yaml:"courtesy_delay"`
		CacheSize     int           `yaml:"cache_size"`
	}

	// Posting настраивает публикацию в X.
	Posting struct {
		Endpoint         string        `yaml:"endpoint"`
		Timeout          time.Duration `yaml:"timeout"`
		DedupWindow      time.Duration `yaml:"dedup_window"`
		DuplicateRetries int           `yaml:"duplicate_retries"`
		RetryDelay       time.Duration `yaml:"retry_delay"`
	}

	// Storage описывает расположение файлов состояния.
	Storage struct {
		Dir            string `yaml:"dir"`
		HistoryBackend string `yaml:"history_backend"` // json | sqlite
	}

	// Metrics настраивает отправку метрик в Pushgateway.
	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job"`
	}

	// Logging задаёт уровень логирования.
	Logging struct {
		Level string `yaml:"level"`
	}
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	HistoryBackendJSON   = "json"
	HistoryBackendSQLite = "sqlite"
)

// Default возвращает конфигурацию, которая используется без файла.
func Default() Root {
	return Root{
		Pipeline: Pipeline{
			Timezone:          "Asia/Tokyo",
			MinPrice:          400,
			NewReleaseDays:    7,
			MaxDailyRank:      50,
			MaxWeeklyRank:     100,
			MaxMonthlyRank:    200,
			SingleChapterMark: "単話",
			NovelMark:         "ノベル",
		},
		Affiliate: Affiliate{
			Endpoint: "https://api.dmm.com/affiliate/v3",
			Site:     "FANZA",
			Service:  "ebook",
			Floor:    "comic",
			Hits:     100,
			Timeout:  15 * time.Second,
		},
		Rewrite: Rewrite{
			Enabled:       true,
			Provider:      ProviderOpenRouter,
			Endpoint:      "https://openrouter.ai/api/v1/chat/completions",
			Timeout:       60 * time.Second,
			CourtesyDelay: time.Second,
			CacheSize:     256,
		},
		Posting: Posting{
			Endpoint:         "https://api.twitter.com/2",
			Timeout:          15 * time.Second,
			DedupWindow:      7 * 24 * time.Hour,
			DuplicateRetries: 3,
			RetryDelay:       2 * time.Second,
		},
		Storage: Storage{
			Dir:            ".",
			HistoryBackend: HistoryBackendJSON,
		},
		Metrics: Metrics{
			Job: "manga_affiliate_bot",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadRoot читает основной файл конфигурации поверх значений по умолчанию.
// Отсутствующий файл не считается ошибкой.
func LoadRoot(path string) (Root, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Root{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Root{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Root{}, err
	}
	return cfg, nil
}

// Validate проверяет значения, которые нельзя заменить дефолтами.
func (r Root) Validate() error {
	switch r.Rewrite.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("rewrite.provider: unknown provider %q", r.Rewrite.Provider)
	}
	switch r.Storage.HistoryBackend {
	case HistoryBackendJSON, HistoryBackendSQLite:
	default:
		return fmt.Errorf("storage.history_backend: unknown backend %q", r.Storage.HistoryBackend)
	}
	if _, err := time.LoadLocation(r.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}
	return nil
}

// Location возвращает часовой пояс, в котором считается "сегодня".
func (p Pipeline) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
