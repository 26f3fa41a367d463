package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/maine/manga_affiliate_bot/internal/config"
	"github.com/maine/manga_affiliate_bot/internal/logging"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/posting"
	"github.com/maine/manga_affiliate_bot/internal/state"
	"github.com/maine/manga_affiliate_bot/internal/xapi"
)

// mockTweeter - мок клиента X: отвечает ошибками по очереди, потом успехом.
type mockTweeter struct {
	errs  []error
	texts []string
}

func (m *mockTweeter) CreateTweet(_ context.Context, text string) (xapi.Tweet, error) {
	idx := len(m.texts)
	m.texts = append(m.texts, text)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return xapi.Tweet{}, m.errs[idx]
	}
	return xapi.Tweet{ID: "1850000000000000001", Text: text}, nil
}

var duplicateErr = &xapi.APIError{StatusCode: 403, Body: `{"detail":"You are not allowed to create a Tweet with duplicate content."}`}

type posterFixture struct {
	poster  *Poster
	current *state.JSONFile[manga.SelectionRecord]
	history *state.JSONHistory
	tweeter *mockTweeter
}

func newPosterFixture(t *testing.T, errs ...error) posterFixture {
	t.Helper()
	dir := t.TempDir()
	clock := func() time.Time { return testNow }
	logger := logging.Discard()

	current := state.NewJSONFile[manga.SelectionRecord](filepath.Join(dir, "current_post.json"))
	history := state.NewJSONHistory(filepath.Join(dir, "post_history.json"), logger)
	tweeter := &mockTweeter{errs: errs}

	publisher := posting.NewPublisher(
		tweeter,
		config.Default().Posting,
		func(context.Context, time.Duration) {},
		clock,
		rand.New(rand.NewPCG(1, 2)),
		logger,
		nil,
	)

	poster := NewPoster(PosterDeps{
		CurrentStore: current,
		Guard:        posting.NewGuard(history, posting.DefaultWindow, clock, logger),
		Publisher:    publisher,
		History:      history,
		Linker:       testLinker(),
		Clock:        clock,
		Logger:       logger,
	})
	return posterFixture{poster: poster, current: current, history: history, tweeter: tweeter}
}

var testRecord = manga.SelectionRecord{
	Title:        "Sample",
	AffiliateURL: "https://al.example.com/?lurl=x&af_id=aff-990&ch=api",
	PostText:     "【注目】これ最高…！😳\n\n#背徳感 #PR",
}

func TestPoster_Run(t *testing.T) {
	ctx := context.Background()
	f := newPosterFixture(t)
	if err := f.current.Save(ctx, testRecord); err != nil {
		t.Fatalf("save current: %v", err)
	}

	result, err := f.poster.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Skipped || result.TweetID == "" {
		t.Fatalf("Run() = %+v", result)
	}

	want := "【注目】これ最高…！😳\n\n#背徳感 #PR\nhttps://al.example.com/?lurl=x&af_id=aff-001&ch=x&ch_id=42"
	if len(f.tweeter.texts) != 1 || f.tweeter.texts[0] != want {
		t.Errorf("sent = %q, want %q", f.tweeter.texts, want)
	}

	entries, err := f.history.Since(ctx, testNow.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Since() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Sample" || entries[0].TweetID != result.TweetID {
		t.Errorf("history = %+v", entries)
	}

	// повторный запуск с тем же заголовком пропускается
	again, err := f.poster.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !again.Skipped {
		t.Error("second Run() should skip recent duplicate")
	}
	if len(f.tweeter.texts) != 1 {
		t.Errorf("second Run() sent %d posts", len(f.tweeter.texts)-1)
	}
}

func TestPoster_DuplicateThenSuccess(t *testing.T) {
	ctx := context.Background()
	f := newPosterFixture(t, duplicateErr)
	if err := f.current.Save(ctx, testRecord); err != nil {
		t.Fatalf("save current: %v", err)
	}

	result, err := f.poster.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(f.tweeter.texts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(f.tweeter.texts))
	}

	varied := f.tweeter.texts[1]
	if varied == f.tweeter.texts[0] {
		t.Error("retry must send a different text")
	}
	if !strings.HasPrefix(varied, "【") || strings.HasPrefix(varied, "【注目】") {
		t.Errorf("varied text = %q, want new bracketed prefix", varied)
	}

	entries, _ := f.history.Since(ctx, testNow.Add(-time.Hour))
	if len(entries) != 1 || entries[0].PostText != varied || result.Text != varied {
		t.Errorf("history must store the accepted text, got %+v", entries)
	}
}

func TestPoster_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing selected", func(t *testing.T) {
		f := newPosterFixture(t)
		if _, err := f.poster.Run(ctx); !errors.Is(err, ErrNothingToPost) {
			t.Errorf("Run() error = %v, want ErrNothingToPost", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		f := newPosterFixture(t)
		rec := testRecord
		rec.PostText = "  \n"
		if err := f.current.Save(ctx, rec); err != nil {
			t.Fatalf("save current: %v", err)
		}
		if _, err := f.poster.Run(ctx); !errors.Is(err, ErrNothingToPost) {
			t.Errorf("Run() error = %v, want ErrNothingToPost", err)
		}
		if len(f.tweeter.texts) != 0 {
			t.Error("empty post must not be sent")
		}
	})

	t.Run("retries exhausted leave history untouched", func(t *testing.T) {
		f := newPosterFixture(t, duplicateErr, duplicateErr, duplicateErr, duplicateErr)
		if err := f.current.Save(ctx, testRecord); err != nil {
			t.Fatalf("save current: %v", err)
		}
		_, err := f.poster.Run(ctx)
		if !errors.Is(err, posting.ErrDuplicateRetriesExhausted) {
			t.Fatalf("Run() error = %v", err)
		}
		entries, _ := f.history.Since(ctx, time.Time{})
		if len(entries) != 0 {
			t.Errorf("history = %+v, want empty", entries)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		p := NewPoster(PosterDeps{})
		if _, err := p.Run(ctx); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("Run() error = %v, want ErrNotConfigured", err)
		}
	})
}
