package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix marks environment variables that override config keys:
// MEDIASCRIBE_TRANSCRIPTION_BACKEND=whispercpp sets transcription.backend.
const EnvPrefix = "MEDIASCRIBE_"

// maxEnvKeyParts caps the key variants tried per variable at 2^7.
const maxEnvKeyParts = 8

// LoaderConfig holds explicit file paths. Empty paths are searched for.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
}

type LoaderOption func(*LoaderConfig)

func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig fills cfg for serviceName in three steps:
//
//  1. the .env file is loaded into the process environment, never replacing
//     a variable that is already set;
//  2. config.yml is read with ${VAR} references expanded from the
//     environment, so secrets such as a sidecar token stay out of the file;
//  3. MEDIASCRIBE_-prefixed variables override keys from the file.
//
// A missing config or .env file is not an error.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	envFile := lc.EnvFile
	if envFile == "" {
		envFile = firstExisting(envSearchPaths(serviceName))
	}
	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = firstExisting(configSearchPaths(serviceName))
	}

	if exists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	if exists(configFile) {
		raw, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("read config file %s: %w", configFile, err)
		}
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadConfig(bytes.NewReader([]byte(os.ExpandEnv(string(raw))))); err != nil {
			return fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}
	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config for %s: %w", serviceName, err)
	}
	return nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if exists(p) {
			return p
		}
	}
	return ""
}

func configSearchPaths(serviceName string) []string {
	return []string{
		filepath.Join("cmd", serviceName, "config.yml"),
		filepath.Join("..", "cmd", serviceName, "config.yml"),
		filepath.Join("..", "..", "cmd", serviceName, "config.yml"),
		filepath.Join("config", "config.yml"),
		filepath.Join("..", "config", "config.yml"),
		"config.yml",
	}
}

func envSearchPaths(serviceName string) []string {
	var paths []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		paths = append(paths, filepath.Join("cmd", serviceName, name), filepath.Join("config", name), name)
	}
	return paths
}

// bindEnv sets each prefixed variable under every key it could address.
func bindEnv(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		for _, k := range envKeyVariants(strings.TrimPrefix(key, EnvPrefix)) {
			v.Set(k, value)
		}
	}
}

// envKeyVariants expands an env key into each dotted key it could mean,
// since an underscore separates both sections and words:
//
//	AUDIO_FFMPEG_BINARY -> audio.ffmpeg.binary, audio.ffmpeg_binary, audio_ffmpeg.binary, audio_ffmpeg_binary
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) > maxEnvKeyParts {
		return []string{strings.Join(parts, "_")}
	}
	variants := []string{parts[0]}
	for _, part := range parts[1:] {
		next := make([]string, 0, len(variants)*2)
		for _, prefix := range variants {
			next = append(next, prefix+"."+part, prefix+"_"+part)
		}
		variants = next
	}
	return variants
}
