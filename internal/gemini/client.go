package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// TextGenerator определяет интерфейс для работы с Gemini API.
// Это позволяет легко создавать моки для тестирования.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, system, prompt string) (string, error)
}

// Client инкапсулирует работу с Gemini API через официальный SDK.
type Client struct {
	client *genai.Client
}

// Убеждаемся, что Client реализует интерфейс TextGenerator.
var _ TextGenerator = (*Client)(nil)

// NewClient создаёт новый клиент для работы с Gemini API.
// Ключ приходит из config.EnvConfig и явно передаётся в SDK.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client}, nil
}

// GenerateText выполняет один запрос к модели с системной инструкцией.
// Повторы и классификация ошибок живут в Transport.
func (c *Client) GenerateText(ctx context.Context, model, system, prompt string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.Text(system)[0],
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("get text from result: %w", err)
	}
	return text, nil
}
