package config

import (
	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/validation"
)

// Environments a service may declare.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig holds the identity and logging settings shared by every
// mediascribe command. The root config embeds it with mapstructure squash,
// so its keys sit at the top level of config.yml:
//
//	name: mediascribe
//	environment: production
//	logging:
//	  level: info
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig is promoted to embedding structs, which makes them
// satisfy bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills the identity fields and the logging section. Embedding
// structs call it before their own defaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "mediascribe"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the identity fields and the logging section.
func (c *ServiceConfig) Validate() error {
	return validation.New().
		Required("name", c.Name).
		Required("environment", c.Environment).
		OneOf("environment", c.Environment, Environments).
		Check("logging", c.Logging.Validate()).
		Err()
}
