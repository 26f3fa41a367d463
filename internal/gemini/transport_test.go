package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/rewrite"
)

// mockGenerator - мок для тестирования Transport
type mockGenerator struct {
	results []error
	text    string
	calls   int
	system  string
}

func (m *mockGenerator) GenerateText(_ context.Context, _, system, _ string) (string, error) {
	m.system = system
	idx := m.calls
	m.calls++
	if idx < len(m.results) && m.results[idx] != nil {
		return "", m.results[idx]
	}
	return m.text, nil
}

func TestTransport_Complete(t *testing.T) {
	tests := []struct {
		name       string
		results    []error
		wantStatus int
		wantErr    bool
		wantCalls  int
		wantSleeps int
	}{
		{
			name:       "success",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "rate limit maps to 429",
			results:    []error{errors.New("Error 429, Message: Resource has been exhausted")},
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  1,
		},
		{
			name:       "daily quota maps to 429",
			results:    []error{errors.New("code: 429 quota generate_content_free_tier_requests, limit: 20")},
			wantStatus: http.StatusTooManyRequests,
			wantCalls:  1,
		},
		{
			name:       "temporary errors are retried",
			results:    []error{errors.New("Error 503, model overloaded"), errors.New("Error 502 bad gateway")},
			wantStatus: http.StatusOK,
			wantCalls:  3,
			wantSleeps: 2,
		},
		{
			name:       "retries exhausted",
			results:    []error{errors.New("500"), errors.New("500"), errors.New("500")},
			wantErr:    true,
			wantCalls:  3,
			wantSleeps: 2,
		},
		{
			name:       "quota without rate limit maps to 403",
			results:    []error{errors.New("Error 403, Message: quota exceeded for project")},
			wantStatus: http.StatusForbidden,
			wantCalls:  1,
		},
		{
			name:      "other error is not retried",
			results:   []error{errors.New("invalid argument")},
			wantErr:   true,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{results: tt.results, text: "俺これ最高！"}
			sleeps := 0
			tr := NewTransport(gen, 3, time.Second, func(context.Context, time.Duration) { sleeps++ }, logging.Discard())

			resp, err := tr.Complete(context.Background(), rewrite.Request{Model: "m", System: "sys", User: "u"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if gen.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", gen.calls, tt.wantCalls)
			}
			if sleeps != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", sleeps, tt.wantSleeps)
			}
		})
	}
}

func TestTransport_ResponseEnvelope(t *testing.T) {
	gen := &mockGenerator{text: "俺これ最高！"}
	tr := NewTransport(gen, 1, time.Second, nil, logging.Discard())

	resp, err := tr.Complete(context.Background(), rewrite.Request{Model: "m", System: "sys", User: "u"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	text, shape, ok := rewrite.UnwrapEnvelope(resp.Body)
	if !ok || shape != "response" || text != "俺これ最高！" {
		t.Errorf("UnwrapEnvelope() = %q, %q, %v", text, shape, ok)
	}
	if gen.system != "sys" {
		t.Errorf("system prompt = %q", gen.system)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"Error 429, Message: Resource has been exhausted", http.StatusTooManyRequests},
		{"code: 429 quota generate_content_free_tier_requests, limit: 20", http.StatusTooManyRequests},
		{"The model is overloaded. Please try again later.", http.StatusServiceUnavailable},
		{"Error 504 gateway timeout", http.StatusInternalServerError},
		{"daily limit reached", http.StatusForbidden},
		{"invalid argument", 0},
	}
	for _, tt := range tests {
		if got := classify(errors.New(tt.msg)); got != tt.want {
			t.Errorf("classify(%q) = %d, want %d", tt.msg, got, tt.want)
		}
	}
}
