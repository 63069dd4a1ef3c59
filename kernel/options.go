// MODUL: options
// ZWECK: Konfiguration von Selector und Registry (Tuning-Store, Force/Disable, Limits)
// INPUT: Funktionale Optionen, z.B. aus envconfig abgeleitet
// OUTPUT: selectorConfig
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: tuning, github.com/dlclark/regexp2
// HINWEISE: Ungueltige Muster sind Konfigurationsfehler und brechen NewRegistry ab

package kernel

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/ollama/kselect/tuning"
)

type selectorConfig struct {
	store         tuning.Store
	noTuning      bool
	forced        map[Kind]string
	disabled      *regexp2.Regexp
	maxCandidates int
	numParallel   int

	err error
}

func newSelectorConfig(opts []SelectorOption) (*selectorConfig, error) {
	cfg := &selectorConfig{
		store:       tuning.Empty,
		numParallel: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.err != nil {
		return nil, &Error{Op: "configure", Err: fmt.Errorf("%w: %w", ErrInvalidImplementation, cfg.err)}
	}
	return cfg, nil
}

// SelectorOption configures selectors created by NewSelector and NewRegistry.
type SelectorOption func(*selectorConfig)

// WithTuning sets the tuning store consulted on every selection.
func WithTuning(store tuning.Store) SelectorOption {
	return func(c *selectorConfig) {
		if store == nil {
			store = tuning.Empty
		}
		c.store = store
	}
}

// WithoutTuning ignores all tuning records.
func WithoutTuning() SelectorOption {
	return func(c *selectorConfig) {
		c.noTuning = true
	}
}

// WithForced puts the named implementation first for its kind whenever it is
// applicable, ahead of tuned and prioritized candidates.
func WithForced(forced map[Kind]string) SelectorOption {
	return func(c *selectorConfig) {
		if len(forced) == 0 {
			return
		}
		if c.forced == nil {
			c.forced = make(map[Kind]string, len(forced))
		}
		for k, v := range forced {
			c.forced[k] = v
		}
	}
}

// WithDisabledPattern drops every implementation whose name matches pattern.
// The pattern uses .NET/Perl syntax, lookarounds included.
func WithDisabledPattern(pattern string) SelectorOption {
	return func(c *selectorConfig) {
		if pattern == "" {
			c.disabled = nil
			return
		}
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			c.err = fmt.Errorf("disable pattern %q: %w", pattern, err)
			return
		}
		re.MatchTimeout = 100 * time.Millisecond
		c.disabled = re
	}
}

// WithMaxCandidates caps the number of returned plans. Zero means all.
func WithMaxCandidates(n int) SelectorOption {
	return func(c *selectorConfig) {
		if n < 0 {
			n = 0
		}
		c.maxCandidates = n
	}
}

// WithParallel bounds the number of concurrent selections in Registry.SelectAll.
func WithParallel(n int) SelectorOption {
	return func(c *selectorConfig) {
		if n > 0 {
			c.numParallel = n
		}
	}
}

func (c *selectorConfig) isDisabled(name string) bool {
	if c.disabled == nil {
		return false
	}
	ok, err := c.disabled.MatchString(name)
	if err != nil {
		slog.Warn("disable pattern match failed", "name", name, "error", err)
		return false
	}
	return ok
}

// ParseForced parses "kind=name[,kind=name...]". Empty entries are ignored.
func ParseForced(s string) (map[Kind]string, error) {
	out := make(map[Kind]string)
	for entry := range strings.SplitSeq(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, "=")
		kind, name := ParseKind(k), strings.TrimSpace(v)
		if !ok || kind == "" || name == "" {
			return nil, fmt.Errorf("invalid forced implementation %q, expected kind=name", entry)
		}
		out[kind] = name
	}
	return out, nil
}
