package bootstrap

import (
	"github.com/kbukum/mediascribe/config"
)

// Config constrains the configuration an App runs with. Embedding
// config.ServiceConfig by value provides GetServiceConfig; the root type
// adds its own sections and chains their defaults and checks:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Workspace workspace.Config `yaml:"workspace" mapstructure:"workspace"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
