package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
)

// Options - глобальные флаги всех команд.
type Options struct {
	Config   string `short:"c" long:"config" env:"MANGABOT_CONFIG" default:"configs/pipeline.yaml" description:"Path to pipeline config"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" description:"Log level (debug, info, warn, error); overrides logging.level"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	commands := []struct {
		name, short, long string
		cmd               flags.Commander
	}{
		{"fetch", "Fetch listings", "Query all affiliate sources, merge them and save raw and sale lists.", &fetchCommand{opts: &opts, ctx: ctx}},
		{"select", "Select next post", "Filter saved listings, save the selection and pick the next post by cursor.", &selectCommand{opts: &opts, ctx: ctx}},
		{"run", "Fetch and select", "Fetch listings and select the next post in one run.", &runCommand{opts: &opts, ctx: ctx}},
		{"post", "Publish current post", "Publish the selected post to X and append it to the post history.", &postCommand{opts: &opts, ctx: ctx}},
		{"preview", "Preview current post", "Show the exact text that the post command would send.", &previewCommand{opts: &opts, ctx: ctx}},
		{"check", "Check credentials", "Verify affiliate API and X credentials.", &checkCommand{opts: &opts, ctx: ctx}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, c.long, c.cmd); err != nil {
			fmt.Fprintf(os.Stderr, "register command %s: %v\n", c.name, err)
			os.Exit(1)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		// ошибку уже напечатал go-flags (flags.PrintErrors)
		os.Exit(1)
	}
}
