package isolate

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"
	"github.com/sahilm/fuzzy"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"github.com/ardnew/isolate/log"
)

// maxSuggestions bounds the alternatives offered for an undefined name.
const maxSuggestions = 3

// Evaluator runs expression text against the bindings of a registry as they
// were when the evaluator was built, with a receiver reachable as this.
// Bindings registered afterward are not visible; see [Evaluator.Stale].
//
// An Evaluator is safe for concurrent use. Compiled expressions are cached
// for the lifetime of the evaluator.
type Evaluator struct {
	registry *Registry
	receiver any
	bindings Bindings
	env      map[string]any
	names    []string
	version  uint64

	programs sync.Map // uint64 -> *program
	group    singleflight.Group
}

type program struct {
	*vm.Program
	source string
}

// Build returns an Evaluator over the current bindings and receiver.
func (r *Registry) Build(receiver any) *Evaluator {
	snap := r.snapshot()

	env := make(map[string]any, len(snap.bindings)+1)
	maps.Copy(env, snap.bindings)
	env[ReceiverName] = receiver

	r.log().Trace("build",
		slog.Int("names", len(snap.names)),
		slog.Uint64("version", snap.version),
		slog.String("receiver", typeName(receiver)),
	)

	return &Evaluator{
		registry: r,
		receiver: receiver,
		bindings: snap.bindings,
		env:      env,
		names:    snap.names,
		version:  snap.version,
	}
}

// Eval builds an Evaluator for receiver and evaluates source once.
func (r *Registry) Eval(
	ctx context.Context,
	source string,
	receiver any,
) (any, error) {
	return r.Build(receiver).Evaluate(ctx, source)
}

// EvalAsync builds an Evaluator for receiver and evaluates source once,
// returning the outcome as a [Deferred].
func (r *Registry) EvalAsync(
	ctx context.Context,
	source string,
	receiver any,
) *Deferred {
	return r.Build(receiver).EvaluateAsync(ctx, source)
}

// Receiver returns the receiver the evaluator was built with.
func (e *Evaluator) Receiver() any { return e.receiver }

// Bindings returns the bindings visible to the evaluator.
func (e *Evaluator) Bindings() Bindings { return e.bindings }

// Names returns the top-level binding names visible to the evaluator, in
// registration order.
func (e *Evaluator) Names() []string { return slices.Clone(e.names) }

// Stale reports whether the registry has changed since the evaluator was
// built. A stale evaluator keeps working with its original bindings.
func (e *Evaluator) Stale() bool {
	return e.registry.Version() != e.version
}

func (e *Evaluator) log() log.Logger { return e.registry.log() }

// Evaluate runs source and returns its value.
//
// An error returned by a binding is returned unchanged. Otherwise failures
// are reported as [ErrUndefinedName] for references to names that are not
// bound, [ErrCompile] for other invalid expressions and [ErrEvaluate] for
// failures while running.
func (e *Evaluator) Evaluate(ctx context.Context, source string) (any, error) {
	prog, err := e.compile(ctx, source)
	if err != nil {
		e.log().DebugContext(ctx, "evaluate",
			slog.String("source", source),
			slog.Any("error", err),
		)

		return nil, err
	}

	out, err := vm.Run(prog, e.env)
	if err != nil {
		err = runError(source, err)

		e.log().DebugContext(ctx, "evaluate",
			slog.String("source", source),
			slog.Any("error", err),
		)

		return nil, err
	}

	e.log().TraceContext(ctx, "evaluate",
		slog.String("source", source),
		slog.String("result_type", typeName(out)),
	)

	return out, nil
}

// EvaluateAsync runs source and returns its outcome as a [Deferred]. It
// never fails directly: errors reject the returned Deferred. A Deferred
// produced by the expression is returned as-is, so its rejection is the
// rejection seen by the caller.
func (e *Evaluator) EvaluateAsync(ctx context.Context, source string) *Deferred {
	out, err := e.Evaluate(ctx, source)
	if err != nil {
		return Reject(err)
	}

	return Resolve(out)
}

// compile returns the cached program for source, compiling it at most once
// even when requested concurrently.
func (e *Evaluator) compile(ctx context.Context, source string) (*vm.Program, error) {
	key := xxh3.HashString(source)

	if cached, ok := e.programs.Load(key); ok {
		if p, ok := cached.(*program); ok && p.source == source {
			e.log().TraceContext(ctx, "cache lookup",
				slog.String("source_hash", strconv.FormatUint(key, 16)),
				slog.Bool("cache_hit", true),
			)

			return p.Program, nil
		}

		// Hash collision with a different source: compile without caching.
		return compile(source, e.env, e.names, e.log())
	}

	e.log().TraceContext(ctx, "cache lookup",
		slog.String("source_hash", strconv.FormatUint(key, 16)),
		slog.Bool("cache_hit", false),
	)

	v, err, _ := e.group.Do(source, func() (any, error) {
		prog, err := compile(source, e.env, e.names, e.log())
		if err != nil {
			return nil, err
		}

		e.programs.LoadOrStore(key, &program{Program: prog, source: source})

		return prog, nil
	})
	if err != nil {
		return nil, err
	}

	prog, _ := v.(*vm.Program)

	return prog, nil
}

// compile lowers and compiles source against env. names are the candidates
// offered when source references an unbound name.
func compile(
	source string,
	env map[string]any,
	names []string,
	logger log.Logger,
) (*vm.Program, error) {
	prog, err := expr.Compile(
		lowerNew(source),
		expr.Env(env),
		expr.Patch(&indexPatcher{env: env, logger: logger}),
	)
	if err != nil {
		return nil, compileError(source, names, rebind(err, source))
	}

	return prog, nil
}

func compileError(source string, names []string, err error) error {
	var fe *file.Error
	if errors.As(err, &fe) {
		if name, ok := strings.CutPrefix(fe.Message, "unknown name "); ok {
			return ErrUndefinedName.Wrap(err).With(
				slog.String("name", name),
				slog.String("source", source),
				slog.Any("suggestions", suggest(name, names)),
			)
		}
	}

	return ErrCompile.Wrap(err).With(slog.String("source", source))
}

// runError recovers the error returned by a binding from the failure
// reported by the virtual machine. Failures of the machine itself, and Go
// runtime panics, are wrapped with [ErrEvaluate].
func runError(source string, err error) error {
	var fe *file.Error
	if errors.As(err, &fe) && fe.Prev != nil {
		var re runtime.Error
		if !errors.As(fe.Prev, &re) {
			return fe.Prev
		}
	}

	return ErrEvaluate.Wrap(rebind(err, source)).With(slog.String("source", source))
}

// rebind recomputes the snippet of a positioned error against source as
// written. Lowering preserves positions, so only the quoted text changes.
func rebind(err error, source string) error {
	var fe *file.Error
	if errors.As(err, &fe) {
		fe.Bind(file.NewSource(source))
	}

	return err
}

// suggest returns the names closest to name, best match first.
func suggest(name string, names []string) []string {
	matches := fuzzy.Find(name, names)

	out := make([]string, 0, min(len(matches), maxSuggestions))

	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}

		out = append(out, m.Str)
	}

	return out
}
