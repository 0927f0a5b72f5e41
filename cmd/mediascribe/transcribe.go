package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/kbukum/mediascribe/acquire"
	"github.com/kbukum/mediascribe/component"
	apperrors "github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/job"
	"github.com/kbukum/mediascribe/progress"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/transcription"
	"github.com/kbukum/mediascribe/workspace"
)

var (
	transcribeModel  string
	transcribeOutput string
	transcribeQuiet  bool
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <url|path>",
	Short: "Transcribe one URL or local file",
	Long: `Acquires the audio of a URL or reads a local file, transcribes it and
writes the transcript to stdout, or to --output. Progress goes to stderr.

Examples:
  mediascribe transcribe https://www.youtube.com/watch?v=dQw4w9WgXcQ
  mediascribe transcribe https://vimeo.com/76979871 --model small
  mediascribe transcribe ./talk.mp3 --output talk.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().StringVarP(&transcribeModel, "model", "m", string(source.DefaultSelector), "model size: tiny, base, small, medium or large")
	transcribeCmd.Flags().StringVarP(&transcribeOutput, "output", "o", "", "write the transcript to this file instead of stdout")
	transcribeCmd.Flags().BoolVarP(&transcribeQuiet, "quiet", "q", false, "do not print progress")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	p, err := buildPipeline(app.Cfg)
	if err != nil {
		return err
	}
	if err := registerPipeline(app.Components.Register, p); err != nil {
		return err
	}

	req := source.Request{Source: args[0], Model: transcribeModel}
	var printer *progressPrinter
	if !transcribeQuiet {
		printer = newProgressPrinter(cmd.ErrOrStderr())
	}

	return app.RunTask(ctx, func(ctx context.Context) error {
		var sink progress.Sink
		if printer != nil {
			sink = printer
		}
		outcome := p.orchestrator.RunJob(ctx, req, sink)
		if printer != nil {
			printer.Done()
		}
		if !outcome.Succeeded() {
			return outcomeError(outcome)
		}
		return writeTranscript(cmd.OutOrStdout(), transcribeOutput, outcome.Transcript.Text)
	})
}

// registerPipeline registers the components of p in start order.
func registerPipeline(register func(c component.Component) error, p *pipeline, preload ...source.Selector) error {
	for _, c := range []component.Component{
		workspace.NewComponent(p.workspaces),
		acquire.NewComponent(p.adapters...),
		transcription.NewComponent(p.cache, preload...),
	} {
		if err := register(c); err != nil {
			return err
		}
	}
	return nil
}

// outcomeError returns the error of a failed outcome. Its message already
// names every attempted strategy for exhausted chains.
func outcomeError(o *job.Outcome) error {
	if o.Err == nil {
		return apperrors.Internal(nil)
	}
	return o.Err
}

func writeTranscript(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}

// progressPrinter renders progress reports as one updating line per stage.
type progressPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	stage string
	used  bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Report implements progress.Sink.
func (p *progressPrinter) Report(fraction float64, stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used && stage != p.stage {
		fmt.Fprintln(p.w)
	}
	p.stage = stage
	p.used = true
	fmt.Fprintf(p.w, "\r%-28s %3.0f%%", stage, fraction*100)
}

// Done ends the current line.
func (p *progressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used {
		fmt.Fprintln(p.w)
		p.used = false
	}
}
