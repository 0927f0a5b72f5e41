package acquire

import (
	"fmt"
	"time"

	"github.com/kbukum/mediascribe/provider"
	"github.com/kbukum/mediascribe/source"
	"github.com/kbukum/mediascribe/validation"
)

// Adapter names shipped with mediascribe.
const (
	AdapterYouTube = "youtube"
	AdapterYTDLP   = "ytdlp"
	AdapterDirect  = "direct"
)

// GenericHTTPPlan is the plan key used for URLs outside any known family.
const GenericHTTPPlan = "generic_http"

// Config configures the acquisition chain.
type Config struct {
	// AttemptTimeout bounds each adapter attempt. Zero means no bound
	// beyond the caller's context.
	AttemptTimeout time.Duration `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`

	// Plans maps a provider family (or "generic_http") to the adapters tried
	// before the generic fallback, in order.
	Plans map[string][]string `yaml:"plans" mapstructure:"plans"`

	// Generic is the fallback adapter appended to every plan.
	Generic string `yaml:"generic" mapstructure:"generic"`

	// Resilience wraps every registered adapter. Retry here stays inside one
	// adapter and never crosses to the next.
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = 10 * time.Minute
	}
	if c.Generic == "" {
		c.Generic = AdapterYTDLP
	}
	if c.Plans == nil {
		c.Plans = DefaultPlans()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	adapters := []string{AdapterYouTube, AdapterYTDLP, AdapterDirect}
	plans := []string{
		string(source.FamilyYouTube), string(source.FamilyVimeo), string(source.FamilyBilibili),
		GenericHTTPPlan,
	}
	v := validation.New().
		NonNegative("attempt_timeout", c.AttemptTimeout).
		Required("generic", c.Generic).
		OneOf("generic", c.Generic, adapters)
	for key, names := range c.Plans {
		v.OneOf("plans", key, plans)
		for i, name := range names {
			v.OneOf(fmt.Sprintf("plans.%s[%d]", key, i), name, adapters)
		}
	}
	return v.Err()
}

// DefaultPlans returns the built-in family plans. vimeo and bilibili have no
// provider-native adapter and go straight to the generic fallback.
func DefaultPlans() map[string][]string {
	return map[string][]string{
		"youtube":       {AdapterYouTube},
		GenericHTTPPlan: {AdapterDirect},
	}
}
