package main

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/maine/manga_affiliate_bot/internal/affiliate"
	"github.com/maine/manga_affiliate_bot/internal/app"
	"github.com/maine/manga_affiliate_bot/internal/manga"
	"github.com/maine/manga_affiliate_bot/internal/posting"
	"github.com/maine/manga_affiliate_bot/internal/xapi"
)

type fetchCommand struct {
	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *fetchCommand) Execute([]string) error {
	rt, err := newRuntime(c.opts)
	if err != nil {
		return err
	}
	defer rt.pushMetrics()

	if err := rt.env.RequireFetch(); err != nil {
		return err
	}
	sel, err := rt.selector(c.ctx)
	if err != nil {
		return err
	}

	items, err := sel.Fetch(c.ctx)
	if err != nil {
		return fmt.Errorf("fetch listings: %w", err)
	}
	rt.logger.Info("fetch completed", "items", len(items))
	return nil
}

type selectCommand struct {
	All bool `long:"all" description:"Rewrite and save every selected item without moving the cursor"`

	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *selectCommand) Execute([]string) error {
	return runSelection(c.ctx, c.opts, c.All, false)
}

type runCommand struct {
	All bool `long:"all" description:"Rewrite and save every selected item without moving the cursor"`

	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *runCommand) Execute([]string) error {
	return runSelection(c.ctx, c.opts, c.All, true)
}

func runSelection(ctx context.Context, opts *Options, all, fetch bool) error {
	rt, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.pushMetrics()

	if err := rt.env.RequireSelection(rt.root.Rewrite); err != nil {
		return err
	}
	sel, err := rt.selector(ctx)
	if err != nil {
		return err
	}

	mode := app.ModeSingle
	if all {
		mode = app.ModeAll
	}

	var result app.SelectResult
	if fetch {
		result, err = sel.Run(ctx, mode)
	} else {
		result, err = sel.SelectStored(ctx, mode)
	}
	if err != nil {
		return fmt.Errorf("select post: %w", err)
	}

	switch {
	case result.Current != nil:
		rt.logger.Info("selection completed", "selected", result.Selected, "index", result.Index, "title", result.Current.Title)
	case result.Wrapped:
		rt.logger.Info("selection completed, cursor reset", "selected", result.Selected)
	default:
		rt.logger.Info("selection completed", "selected", result.Selected)
	}
	return nil
}

type postCommand struct {
	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *postCommand) Execute([]string) error {
	rt, err := newRuntime(c.opts)
	if err != nil {
		return err
	}
	defer rt.pushMetrics()

	if err := rt.env.RequirePosting(); err != nil {
		return err
	}
	poster, history, err := rt.poster(c.ctx)
	if err != nil {
		return err
	}
	defer history.Close()

	result, err := poster.Run(c.ctx)
	if errors.Is(err, posting.ErrDuplicateRetriesExhausted) {
		// Отказы как дубликата не останавливают расписание: следующий запуск выберет другой пост.
		rt.logger.Error("no post this cycle", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	if result.Skipped {
		rt.logger.Info("post command finished without publishing")
		return nil
	}
	rt.logger.Info("post command completed", "tweet_id", result.TweetID)
	return nil
}

type previewCommand struct {
	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *previewCommand) Execute([]string) error {
	rt, err := newRuntime(c.opts)
	if err != nil {
		return err
	}

	poster := app.NewPoster(app.PosterDeps{
		CurrentStore: rt.currentStore(),
		Linker:       affiliate.NewLinker(rt.env),
		Logger:       rt.logger,
	})
	record, err := poster.Current(c.ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderPreview(record, poster.Transmission(record)))
	return nil
}

func renderPreview(record manga.SelectionRecord, text string) string {
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(record.Title)
	foot := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(fmt.Sprintf("%d chars", utf8.RuneCountInString(text)))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, head, "", text, "", foot))
}

type checkCommand struct {
	opts *Options
	ctx  context.Context
}

// Execute реализует flags.Commander.
func (c *checkCommand) Execute([]string) error {
	rt, err := newRuntime(c.opts)
	if err != nil {
		return err
	}
	if err := rt.env.RequireCredentials(); err != nil {
		return err
	}

	client := rt.dmmClient()
	count, err := client.Ping(c.ctx)
	if err != nil {
		return fmt.Errorf("affiliate api check: %w", err)
	}
	rt.logger.Info("affiliate api credentials ok", "result_count", count)

	floors, err := client.FloorList(c.ctx)
	if err != nil {
		rt.logger.Warn("floor list unavailable", "error", err)
	}
	for _, f := range floors {
		rt.logger.Debug("floor", "site", f.Site, "service", f.Service, "id", f.ID, "code", f.Code, "name", f.Name)
	}

	x := xapi.NewClient(c.ctx, rt.root.Posting, xapi.CredentialsFromEnv(rt.env))
	me, err := x.Me(c.ctx)
	if err != nil {
		return fmt.Errorf("x api check: %w", err)
	}
	rt.logger.Info("x credentials ok", "username", me.Username, "id", me.ID)
	return nil
}
