package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvConfig содержит токены и другие переменные окружения.
type EnvConfig struct {
	DMMAPIID       string
	DMMAffiliateID string

	AffiliateID            string
	AffiliateSite          string
	AffiliateChannel       string
	AffiliatePostSite      string
	AffiliatePostChannel   string
	AffiliatePostChannelID string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterSystemPrompt string
	OpenRouterUserPrompt   string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiSystemPrompt string
	GeminiUserPrompt   string

	XAPIKey       string
	XAPISecret    string
	XAccessToken  string
	XAccessSecret string
}

// LoadEnvConfig читает переменные окружения. Проверка обязательных значений
// выполняется отдельно для каждой команды (RequireSelection, RequirePosting).
func LoadEnvConfig() *EnvConfig {
	return &EnvConfig{
		DMMAPIID:       os.Getenv("DMM_API_ID"),
		DMMAffiliateID: os.Getenv("DMM_AFFILIATE_ID"),

		AffiliateID:            os.Getenv("AFFILIATE_ID"),
		AffiliateSite:          os.Getenv("AFFILIATE_SITE"),
		AffiliateChannel:       os.Getenv("AFFILIATE_CHANNEL"),
		AffiliatePostSite:      os.Getenv("AFFILIATE_POST_SITE"),
		AffiliatePostChannel:   os.Getenv("AFFILIATE_POST_CHANNEL"),
		AffiliatePostChannelID: os.Getenv("AFFILIATE_POST_CHANNEL_ID"),

		OpenRouterAPIKey:       os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        os.Getenv("OPENROUTER_MODEL"),
		OpenRouterSystemPrompt: os.Getenv("OPENROUTER_SYSTEM_PROMPT"),
		OpenRouterUserPrompt:   os.Getenv("OPENROUTER_USER_PROMPT_TEMPLATE"),

		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        os.Getenv("GEMINI_MODEL"),
		GeminiSystemPrompt: os.Getenv("GEMINI_SYSTEM_PROMPT"),
		GeminiUserPrompt:   os.Getenv("GEMINI_USER_PROMPT_TEMPLATE"),

		XAPIKey:       os.Getenv("X_API_KEY"),
		XAPISecret:    os.Getenv("X_API_SECRET"),
		XAccessToken:  os.Getenv("X_ACCESS_TOKEN"),
		XAccessSecret: os.Getenv("X_ACCESS_SECRET"),
	}
}

// MissingError перечисляет все отсутствующие обязательные переменные.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required environment variables are not set: %s", strings.Join(e.Names, ", "))
}

type requirement struct {
	name  string
	value string
}

func check(reqs []requirement) error {
	var missing []string
	for _, r := range reqs {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Names: missing}
	}
	return nil
}

// RequireFetch проверяет учётные данные партнёрского API.
func (e *EnvConfig) RequireFetch() error {
	return check([]requirement{
		{"DMM_API_ID", e.DMMAPIID},
		{"DMM_AFFILIATE_ID", e.DMMAffiliateID},
	})
}

// RequireSelection проверяет всё, что нужно для отбора и переписывания.
func (e *EnvConfig) RequireSelection(rw Rewrite) error {
	reqs := []requirement{
		{"DMM_API_ID", e.DMMAPIID},
		{"DMM_AFFILIATE_ID", e.DMMAffiliateID},
		{"AFFILIATE_ID", e.AffiliateID},
		{"AFFILIATE_SITE", e.AffiliateSite},
		{"AFFILIATE_CHANNEL", e.AffiliateChannel},
	}
	if rw.Enabled {
		reqs = append(reqs, e.rewriteRequirements(rw.Provider)...)
	}
	return check(reqs)
}

// RequirePosting проверяет учётные данные X и каналы ссылок для публикации.
func (e *EnvConfig) RequirePosting() error {
	return check([]requirement{
		{"X_API_KEY", e.XAPIKey},
		{"X_API_SECRET", e.XAPISecret},
		{"X_ACCESS_TOKEN", e.XAccessToken},
		{"X_ACCESS_SECRET", e.XAccessSecret},
		{"AFFILIATE_ID", e.AffiliateID},
		{"AFFILIATE_SITE", e.AffiliateSite},
		{"AFFILIATE_CHANNEL", e.AffiliateChannel},
		{"AFFILIATE_POST_SITE", e.AffiliatePostSite},
		{"AFFILIATE_POST_CHANNEL", e.AffiliatePostChannel},
		{"AFFILIATE_POST_CHANNEL_ID", e.AffiliatePostChannelID},
	})
}

// RequireCredentials проверяет только ключи внешних сервисов (команда check).
func (e *EnvConfig) RequireCredentials() error {
	return check([]requirement{
		{"DMM_API_ID", e.DMMAPIID},
		{"DMM_AFFILIATE_ID", e.DMMAffiliateID},
		{"X_API_KEY", e.XAPIKey},
		{"X_API_SECRET", e.XAPISecret},
		{"X_ACCESS_TOKEN", e.XAccessToken},
		{"X_ACCESS_SECRET", e.XAccessSecret},
	})
}

func (e *EnvConfig) rewriteRequirements(provider string) []requirement {
	if provider == ProviderGemini {
		return []requirement{
			{"GEMINI_API_KEY", e.GeminiAPIKey},
			{"GEMINI_MODEL", e.GeminiModel},
			{"GEMINI_SYSTEM_PROMPT", e.GeminiSystemPrompt},
			{"GEMINI_USER_PROMPT_TEMPLATE", e.GeminiUserPrompt},
		}
	}
	return []requirement{
		{"OPENROUTER_API_KEY", e.OpenRouterAPIKey},
		{"OPENROUTER_MODEL", e.OpenRouterModel},
		{"OPENROUTER_SYSTEM_PROMPT", e.OpenRouterSystemPrompt},
		{"OPENROUTER_USER_PROMPT_TEMPLATE", e.OpenRouterUserPrompt},
	}
}

// Prompt возвращает модель и промпты выбранного провайдера.
func (e *EnvConfig) Prompt(provider string) (model, system, userTemplate string) {
	if provider == ProviderGemini {
		return e.GeminiModel, e.GeminiSystemPrompt, e.GeminiUserPrompt
	}
	return e.OpenRouterModel, e.OpenRouterSystemPrompt, e.OpenRouterUserPrompt
}
