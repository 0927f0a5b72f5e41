package main

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/mediascribe/bootstrap"
	"github.com/kbukum/mediascribe/config"
	apperrors "github.com/kbukum/mediascribe/errors"
	"github.com/kbukum/mediascribe/observability"
	"github.com/kbukum/mediascribe/version"
)

const serviceName = "mediascribe"

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mediascribe",
	Short: "Fetch audio from a URL or file and transcribe it with Whisper",
	Long: `mediascribe acquires the audio track of a media URL (YouTube, Vimeo,
Bilibili, direct links, anything yt-dlp understands) or a local file and
transcribes it with a Whisper model.

Commands:
  transcribe  run one job and print the transcript
  serve       expose the job pipeline over HTTP
  models      preload and list Whisper models
  version     print build information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cmd/mediascribe/config.yml, ./config/config.yml or ./config.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the config file and environment into a Config.
func loadConfig() (*Config, error) {
	var opts []config.LoaderOption
	if cfgFile != "" {
		opts = append(opts, config.WithConfigFile(cfgFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// newApp loads the config and creates the application with telemetry
// installed. Telemetry is flushed when the app stops.
func newApp(ctx context.Context) (*bootstrap.App[*Config], error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.NewApp(cfg, cfg.Shutdown.options()...)
	if err != nil {
		return nil, err
	}
	shutdown, err := observability.Init(ctx, cfg.Observability, cfg.Name, version.GetVersionInfo().Short(), cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	app.OnStop(bootstrap.Hook(shutdown))
	return app, nil
}

// exitCode maps an error to the process exit status: 2 for bad input,
// 3 for content no strategy can handle, 130 for cancellation, 1 otherwise.
func exitCode(err error) int {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		return 1
	}
	switch appErr.Code {
	case apperrors.ErrCodeInvalidInput:
		return 2
	case apperrors.ErrCodeUnsupportedContent:
		return 3
	case apperrors.ErrCodeCanceled:
		return 130
	default:
		return 1
	}
}
