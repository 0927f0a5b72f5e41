package source

import (
	"strings"

	"github.com/kbukum/mediascribe/errors"
)

// Selector names a transcription model size.
type Selector string

// Model selectors, smallest to largest.
const (
	Tiny   Selector = "tiny"
	Base   Selector = "base"
	Small  Selector = "small"
	Medium Selector = "medium"
	Large  Selector = "large"
)

// DefaultSelector is used when a request leaves the model empty.
const DefaultSelector = Base

// Selectors lists every valid selector in size order.
func Selectors() []Selector {
	return []Selector{Tiny, Base, Small, Medium, Large}
}

// ParseSelector validates s. Empty input yields DefaultSelector.
func ParseSelector(s string) (Selector, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSelector, nil
	}
	for _, sel := range Selectors() {
		if string(sel) == s {
			return sel, nil
		}
	}
	return "", errors.InvalidInput("model", "unknown model "+s+", expected one of tiny, base, small, medium, large")
}

func (s Selector) String() string { return string(s) }
