// Package rewrite переписывает шаблонный текст поста через внешнюю модель
// и всегда возвращает пригодный текст, даже если сервис недоступен.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request - один запрос к модели.
type Request struct {
	Model  string
	System string
	User   string
}

// Response - сырой ответ сервиса: статус и тело как есть.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport отправляет запрос к сервису переписывания.
// Ошибка означает сбой транспорта; HTTP-статусы возвращаются в Response.
type Transport interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

const maxResponseBytes = 1 << 20

// OpenRouter - транспорт chat completions с Bearer-авторизацией.
type OpenRouter struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewOpenRouter создаёт транспорт. Если httpClient == nil, используется клиент с таймаутом timeout.
func NewOpenRouter(endpoint, apiKey string, timeout time.Duration, httpClient *http.Client) *OpenRouter {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &OpenRouter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// Complete реализует Transport.
func (o *OpenRouter) Complete(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
