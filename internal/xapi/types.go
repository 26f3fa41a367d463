package xapi

import (
	"fmt"
	"strings"
)

// Tweet - созданный пост.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// User - аккаунт, от имени которого работает бот.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type tweetResponse struct {
	Data *Tweet `json:"data"`
}

type userResponse struct {
	Data *User `json:"data"`
}

type createTweetRequest struct {
	Text string `json:"text"`
}

// APIError - ответ API с кодом вне диапазона 2xx.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("x api status %d: %s", e.StatusCode, e.Body)
}

// IsDuplicateContent сообщает, что сервис отклонил пост как дубликат.
func (e *APIError) IsDuplicateContent() bool {
	return e.StatusCode == 403 && strings.Contains(strings.ToLower(e.Body), "duplicate content")
}
