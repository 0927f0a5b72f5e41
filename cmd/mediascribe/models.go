package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
)

var modelsCmd = &cobra.Command{
	Use:   "models [selector...]",
	Short: "Preload and list Whisper models",
	Long: `Loads the given model selectors (or those under transcription.preload)
and lists every selector with its load state. With the whispercpp backend
this downloads missing ggml files.

Examples:
  mediascribe models
  mediascribe models base small`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx)
	if err != nil {
		return err
	}

	sels, err := modelSelectors(args, app.Cfg.Transcription)
	if err != nil {
		return err
	}
	loader, err := newLoader(app.Cfg)
	if err != nil {
		return err
	}
	cache := transcription.NewCache(loader, transcription.WithLoadTimeout(app.Cfg.Transcription.LoadTimeout))
	if err := app.RegisterComponent(transcription.NewComponent(cache)); err != nil {
		return err
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		if !cache.Available(ctx) {
			fmt.Fprintf(cmd.ErrOrStderr(), "backend %s is not available\n", cache.Backend())
		}
		for _, sel := range sels {
			fmt.Fprintf(cmd.ErrOrStderr(), "loading %s...\n", sel)
			start := time.Now()
			if err := cache.Preload(ctx, sel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "loaded %s in %s\n", sel, time.Since(start).Round(time.Millisecond))
		}
		printModels(cmd.OutOrStdout(), cache.Backend(), cache.Loaded())
		return nil
	})
}

// modelSelectors parses args, falling back to the configured preload list.
func modelSelectors(args []string, cfg transcription.Config) ([]source.Selector, error) {
	if len(args) == 0 {
		return cfg.PreloadSelectors()
	}
	sels := make([]source.Selector, 0, len(args))
	for _, a := range args {
		sel, err := source.ParseSelector(a)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

func printModels(w io.Writer, backend string, loaded []transcription.Entry) {
	byName := make(map[source.Selector]transcription.Entry, len(loaded))
	for _, e := range loaded {
		byName[e.Selector] = e
	}
	fmt.Fprintf(w, "backend: %s\n", backend)
	for _, sel := range source.Selectors() {
		state := "-"
		if e, ok := byName[sel]; ok {
			state = "loaded (" + e.Engine + ")"
		}
		def := ""
		if sel == source.DefaultSelector {
			def = " (default)"
		}
		fmt.Fprintf(w, "  %-7s %s%s\n", sel, state, def)
	}
}
