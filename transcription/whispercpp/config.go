package whispercpp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/mediascribe/source"
)

const defaultModelURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-{model}.bin"

// Config holds configuration for the whisper.cpp backend.
type Config struct {
	// Binary is the whisper.cpp CLI. Defaults to "whisper-cli".
	Binary string `yaml:"binary" mapstructure:"binary"`

	// ModelsDir holds ggml model files. Defaults to <user cache>/mediascribe/models.
	ModelsDir string `yaml:"models_dir" mapstructure:"models_dir"`

	// ModelURL is the download location; "{model}" is replaced by the model
	// file stem, e.g. "base" or "large-v3".
	ModelURL string `yaml:"model_url" mapstructure:"model_url"`

	// Models overrides the file stem used for a selector.
	Models map[string]string `yaml:"models" mapstructure:"models"`

	// DisableDownload fails loads for missing models instead of fetching them.
	DisableDownload bool `yaml:"disable_download" mapstructure:"disable_download"`

	// Language is passed with -l. Empty lets whisper.cpp auto-detect.
	Language string `yaml:"language" mapstructure:"language"`

	// Threads is passed with -t when positive.
	Threads int `yaml:"threads" mapstructure:"threads"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Binary == "" {
		c.Binary = "whisper-cli"
	}
	if c.ModelsDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.ModelsDir = filepath.Join(dir, "mediascribe", "models")
	}
	if c.ModelURL == "" {
		c.ModelURL = defaultModelURL
	}
	if c.Language == "" {
		c.Language = "auto"
	}
}

var defaultStems = map[source.Selector]string{
	source.Tiny:   "tiny",
	source.Base:   "base",
	source.Small:  "small",
	source.Medium: "medium",
	source.Large:  "large-v3",
}

func (c *Config) stem(sel source.Selector) string {
	if s, ok := c.Models[string(sel)]; ok && s != "" {
		return s
	}
	if s, ok := defaultStems[sel]; ok {
		return s
	}
	return string(sel)
}

func (c *Config) modelPath(sel source.Selector) string {
	return filepath.Join(c.ModelsDir, "ggml-"+c.stem(sel)+".bin")
}

func (c *Config) modelURL(sel source.Selector) string {
	return strings.ReplaceAll(c.ModelURL, "{model}", c.stem(sel))
}
