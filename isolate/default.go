package isolate

import (
	"context"
	"sync"
)

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating an empty one on first
// use. It is never torn down, but [SetDefault] may replace it.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry == nil {
		defaultRegistry = newRegistry()
	}

	return defaultRegistry
}

// SetDefault replaces the process-wide registry with r, or with a new empty
// registry if r is nil. The returned function restores the previous one.
func SetDefault(r *Registry) (restore func()) {
	if r == nil {
		r = newRegistry()
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()

	prev := defaultRegistry
	defaultRegistry = r

	return func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()

		defaultRegistry = prev
	}
}

// Register binds value at path in the process-wide registry.
func Register(ctx context.Context, path string, value any) error {
	return Default().Register(ctx, path, value)
}

// Build returns an Evaluator over the process-wide registry.
func Build(receiver any) *Evaluator {
	return Default().Build(receiver)
}

// Eval evaluates source once against the process-wide registry.
func Eval(ctx context.Context, source string, receiver any) (any, error) {
	return Default().Eval(ctx, source, receiver)
}

// EvalAsync evaluates source once against the process-wide registry,
// returning the outcome as a [Deferred].
func EvalAsync(ctx context.Context, source string, receiver any) *Deferred {
	return Default().EvalAsync(ctx, source, receiver)
}
