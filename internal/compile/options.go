// Package compile implements the compilation orchestrator (spec §2 C0,
// §5): it owns the shared type registry and diagnostic sink and drives
// Phase1a/Phase1b/Phase2 (check, lower, SSA build) across one or more
// files, running Phase 2 concurrently across functions once every
// file's declarations have been registered.
package compile

import (
	"flag"
	"runtime"

	"go.uber.org/zap"
)

// debugTags mirrors the teacher's debugtab (cmd/compile/internal/gc/
// main.go): a name->toggle table driven by a single "-d" style flag,
// except the toggle routes into structured zap tracing instead of bare
// fmt.Printf. Valid names: "check", "lower", "ssa".
var debugTags = map[string]bool{
	"check": false,
	"lower": false,
	"ssa":   false,
}

// Options configures one Compilation. The zero value is accepted by
// NewCompilation: Workers == 0 sets no limit, so Phase 2 runs unbounded;
// NewOptions instead applies GOMAXPROCS.
type Options struct {
	// Workers bounds concurrent Phase 2 goroutines (errgroup.SetLimit).
	// 1 degrades to the sequential order spec.md §5 describes as baseline.
	Workers int

	// Debug names the active debugTags entries ("check", "lower", "ssa").
	Debug map[string]bool

	Logger *zap.Logger
}

// NewOptions returns the default Options: one Phase-2 goroutine per
// logical CPU, no debug tracing, a no-op logger.
func NewOptions() Options {
	return Options{
		Workers: runtime.GOMAXPROCS(0),
		Debug:   map[string]bool{},
		Logger:  zap.NewNop(),
	}
}

// BindFlags registers this module's toggles on fs, following the
// teacher's own direct use of the flag package in gc/main.go for its
// debugtab. Call before fs.Parse.
func (o *Options) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&o.Workers, "j", o.Workers, "maximum concurrent function checks (1 = sequential)")
	fs.Func("d", "comma-separated debug tags: check,lower,ssa", func(s string) error {
		for _, name := range splitCSV(s) {
			if _, ok := debugTags[name]; ok {
				o.Debug[name] = true
			}
		}
		return nil
	})
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func (o Options) traceEnabled(tag string) bool { return o.Debug[tag] }
