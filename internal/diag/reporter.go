package diag

import (
	"fmt"
	"sort"
	"sync"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lumen-lang/lumen/internal/ast"
)

// Entry is one recorded diagnostic.
type Entry struct {
	Pos     ast.Pos
	Code    Code
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Pos.Line, e.Pos.Col, e.Code, e.Message)
}

// Reporter is the §6.2 external collaborator interface: best-effort,
// never raises. Phase 2 of the checker (spec §5) may run one goroutine
// per function, so Reporter is safe for concurrent use.
type Reporter struct {
	mu      sync.Mutex
	entries []Entry
	log     *zap.Logger
}

// New returns a Reporter. A nil logger is replaced with zap's no-op
// logger so callers that don't care about structured tracing don't have
// to construct one.
func New(log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log}
}

// ErrorWithCode records an error at pos. It never panics and never
// returns an error value — failures are sunk, not propagated, so that
// the checker can continue past individual mistakes (spec §7).
func (r *Reporter) ErrorWithCode(pos ast.Pos, code Code, message string) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Pos: pos, Code: code, Message: message})
	r.mu.Unlock()
	r.log.Debug("diag.error",
		zap.Int("line", pos.Line), zap.Int("col", pos.Col),
		zap.Stringer("code", code), zap.String("message", message))
}

// Entries returns a defensive copy of recorded diagnostics, ordered the
// way they were recorded under a sequential Phase 2; callers that ran
// Phase 2 concurrently across functions should treat ordering as
// unspecified across functions (stable within one function).
func (r *Reporter) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Reporter) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0
}

func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SortedByPosition returns Entries() sorted by (line, col); useful for
// deterministic test assertions and user-facing output regardless of
// which function's goroutine recorded them first.
func (r *Reporter) SortedByPosition() []Entry {
	out := r.Entries()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Line != out[j].Pos.Line {
			return out[i].Pos.Line < out[j].Pos.Line
		}
		return out[i].Pos.Col < out[j].Pos.Col
	})
	return out
}

// InternalError wraps an unexpected internal failure (corrupt node pool,
// an invariant violated by a caller) with call-site context. These never
// reach a user; they indicate a bug in this module or its caller.
func InternalError(msg string, args ...interface{}) error {
	return errors.Errorf(msg, args...)
}

// WrapInternal adds context to err without discarding it, for the same
// class of internal (non-user-facing) failure as InternalError.
func WrapInternal(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// VerificationFailures aggregates the set of SSA verification failures
// produced for a single function (spec §4.5.8) into one error. It does
// not record them in a Reporter.
type VerificationFailures struct {
	errs *multierror.Error
}

func (v *VerificationFailures) Add(err error) {
	v.errs = multierror.Append(v.errs, err)
}

func (v *VerificationFailures) ErrorOrNil() error {
	if v.errs == nil {
		return nil
	}
	return v.errs.ErrorOrNil()
}
