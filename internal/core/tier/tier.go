// Package tier runs an ordered list of sources and returns the first one
// that succeeds. Catalog loading, single-file installs, MCP installs and
// skill installs all resolve through it.
package tier

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSkipped marks an attempt that was not run (for example the remote
// tier in offline mode).
var ErrSkipped = errors.New("skipped")

// Attempt is one tier in a fallback chain.
type Attempt[T any] struct {
	// Name identifies the tier ("cache", "remote", "bundled").
	Name string
	// Skip disables the attempt without removing it from the chain.
	Skip bool
	// Run resolves the value. A nil error ends the chain.
	Run func(ctx context.Context) (T, error)
}

// Failure records why a single tier did not produce a value.
type Failure struct {
	Name string
	Err  error
}

// ExhaustedError is returned when every tier failed.
type ExhaustedError struct {
	Failures []Failure
}

// Error reports the last tier that actually ran. Earlier tiers are
// transient by construction and are kept only for diagnostics.
func (e *ExhaustedError) Error() string {
	if last := e.last(); last != nil {
		return last.Err.Error()
	}
	return "no source available"
}

// Unwrap exposes every tier error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Detail lists every tier failure as "name: err" pairs.
func (e *ExhaustedError) Detail() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Name, f.Err))
	}
	return strings.Join(parts, "; ")
}

func (e *ExhaustedError) last() *Failure {
	for i := len(e.Failures) - 1; i >= 0; i-- {
		if !errors.Is(e.Failures[i].Err, ErrSkipped) {
			return &e.Failures[i]
		}
	}
	return nil
}

// Options tune a fallback chain.
type Options struct {
	// Terminal reports errors that must stop the chain instead of falling
	// through. A nil Terminal treats every failure as recoverable.
	Terminal func(error) bool
	// OnFailure is called for every failed tier, in order.
	OnFailure func(name string, err error)
}

// First runs attempts in order and returns the first value produced along
// with the name of the tier that produced it.
func First[T any](ctx context.Context, attempts ...Attempt[T]) (T, string, error) {
	return FirstWith(ctx, Options{}, attempts...)
}

// FirstWith is First with explicit options.
func FirstWith[T any](ctx context.Context, opts Options, attempts ...Attempt[T]) (T, string, error) {
	var zero T
	exhausted := &ExhaustedError{}

	for _, a := range attempts {
		if a.Skip || a.Run == nil {
			exhausted.Failures = append(exhausted.Failures, Failure{Name: a.Name, Err: ErrSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		v, err := a.Run(ctx)
		if err == nil {
			return v, a.Name, nil
		}

		if opts.OnFailure != nil {
			opts.OnFailure(a.Name, err)
		}
		if opts.Terminal != nil && opts.Terminal(err) {
			return zero, a.Name, err
		}
		exhausted.Failures = append(exhausted.Failures, Failure{Name: a.Name, Err: err})
	}

	return zero, "", exhausted
}
