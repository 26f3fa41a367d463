package rewrite

import (
	"encoding/json"
	"strings"
)

// envelope знает, как достать текст из одной формы ответа.
type envelope struct {
	name  string
	match func(body []byte) (string, bool)
}

// Формы проверяются по порядку, первая подошедшая выигрывает.
var envelopes = []envelope{
	{name: "choices", match: matchChoices},
	{name: "data", match: matchData},
	{name: "response", match: matchResponse},
}

// UnwrapEnvelope извлекает текст модели из тела ответа.
// Возвращает имя распознанной формы или ok == false, если ни одна не подошла.
func UnwrapEnvelope(body []byte) (text, shape string, ok bool) {
	for _, env := range envelopes {
		if text, ok := env.match(body); ok {
			return strings.TrimSpace(text), env.name, true
		}
	}
	return "", "", false
}

func matchChoices(body []byte) (string, bool) {
	var resp struct {
		Choices []struct {
			Message *struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return "", false
	}
	msg := resp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", false
	}
	return *msg.Content, true
}

func matchData(body []byte) (string, bool) {
	var resp struct {
		Data []struct {
			Content *string `json:"content"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Data) == 0 {
		return "", false
	}
	if resp.Data[0].Content == nil {
		return "", false
	}
	return *resp.Data[0].Content, true
}

func matchResponse(body []byte) (string, bool) {
	var resp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Response == nil {
		return "", false
	}
	return *resp.Response, true
}
