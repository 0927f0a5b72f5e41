// Package config loads mediascribe configuration with Viper.
//
// A .env file is loaded first, then config.yml with ${VAR} references
// expanded, then MEDIASCRIBE_-prefixed environment variables override
// individual keys. The result is decoded into a struct embedding
// ServiceConfig.
//
//	var cfg Config
//	err := config.LoadConfig("mediascribe", &cfg, config.WithConfigFile(path))
package config
