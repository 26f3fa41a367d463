// Package xapi - минимальный клиент X API v2: публикация поста и проверка учётных данных.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/maine/manga_affiliate_bot/internal/config"
)

// XClient определяет интерфейс для работы с X API.
// Это позволяет легко создавать моки для тестирования.
type XClient interface {
	CreateTweet(ctx context.Context, text string) (Tweet, error)
	Me(ctx context.Context) (User, error)
}

// Credentials - ключи приложения и токен пользователя (OAuth 1.0a).
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// CredentialsFromEnv собирает ключи из переменных окружения.
func CredentialsFromEnv(env *config.EnvConfig) Credentials {
	return Credentials{
		APIKey:       env.XAPIKey,
		APISecret:    env.XAPISecret,
		AccessToken:  env.XAccessToken,
		AccessSecret: env.XAccessSecret,
	}
}

// Client инкапсулирует работу с X API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Убеждаемся, что Client реализует интерфейс XClient.
var _ XClient = (*Client)(nil)

// NewClient создаёт клиента, подписывающего запросы OAuth1.
// Базовый http.Client можно передать через ctx по ключу oauth1.HTTPClient.
func NewClient(ctx context.Context, cfg config.Posting, creds Credentials) *Client {
	httpClient := oauth1.NewConfig(creds.APIKey, creds.APISecret).
		Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpClient.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.Endpoint, "/"),
		client:  httpClient,
	}
}

// CreateTweet публикует текстовый пост.
func (c *Client) CreateTweet(ctx context.Context, text string) (Tweet, error) {
	data, err := json.Marshal(createTweetRequest{Text: text})
	if err != nil {
		return Tweet{}, fmt.Errorf("marshal tweet: %w", err)
	}

	var resp tweetResponse
	if err := c.do(ctx, http.MethodPost, "/tweets", bytes.NewReader(data), &resp); err != nil {
		return Tweet{}, err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return Tweet{}, fmt.Errorf("create tweet: response has no data")
	}
	return *resp.Data, nil
}

// Me возвращает аккаунт, которому принадлежат токены.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &resp); err != nil {
		return User{}, err
	}
	if resp.Data == nil {
		return User{}, fmt.Errorf("users/me: response has no data")
	}
	return *resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
