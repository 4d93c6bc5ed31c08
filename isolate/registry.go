package isolate

import (
	"context"
	"iter"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/isolate/builtin"
	"github.com/ardnew/isolate/log"
)

// Registry owns a tree of named bindings. Top-level names become free
// variables of expressions run by the evaluators it builds; nested paths
// address properties of object nodes created on demand.
//
// A Registry is safe for concurrent use. Bindings are never removed, but a
// later registration of the same path replaces the earlier value.
type Registry struct {
	logger   log.Logger
	builtins bool

	mu       sync.RWMutex
	bindings map[string]any
	meta     map[string]Meta
	order    []string
	version  uint64
	snap     snapshot
}

// snapshot is an immutable copy of the binding tree at one version.
type snapshot struct {
	bindings Bindings
	names    []string
	version  uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for diagnostics. Without it the process
// logger ([log.Default]) is used at the time of each message.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithBuiltins seeds the registry with the builtin vocabulary of package
// [builtin] before any other binding, so user bindings may replace it.
func WithBuiltins() Option {
	return func(r *Registry) {
		r.builtins = true
	}
}

// New returns a Registry seeded with bindings, registered in sorted key
// order. Keys may be any path accepted by [Registry.Register].
func New(
	ctx context.Context,
	bindings map[string]any,
	opts ...Option,
) (*Registry, error) {
	r := newRegistry()

	for _, opt := range opts {
		opt(r)
	}

	if r.builtins {
		if err := r.RegisterMap(ctx, builtin.Env()); err != nil {
			return nil, err
		}
	}

	if err := r.RegisterMap(ctx, bindings); err != nil {
		return nil, err
	}

	return r, nil
}

func newRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]any),
		meta:     make(map[string]Meta),
	}
}

func (r *Registry) log() log.Logger {
	if r.logger.Logger == nil {
		return log.Default()
	}

	return r.logger
}

// Register binds value at path.
//
// A path whose root is not a valid identifier is reported through the
// logger and ignored: the registry is left unchanged and no error is
// returned. A nested path whose intermediate segment holds a non-object
// value (including nil) fails with [ErrStructuralConflict], also leaving the
// registry unchanged.
//
// [Func] values are wrapped so every call receives the registry's bindings
// as of the time of the call. All other values, [Constructor] included, are
// stored unwrapped. Object values (map[string]any) are copied, and the
// [Func] leaves they hold are wrapped the same way.
func (r *Registry) Register(ctx context.Context, path string, value any) error {
	p, err := ParsePath(path)
	if err != nil {
		r.log().ErrorContext(ctx, "register", slog.Any("error", err))

		return nil
	}

	return r.register(ctx, p, value)
}

// RegisterAll registers each path and value of seq in iteration order. It
// stops at the first error; bindings registered before it remain.
func (r *Registry) RegisterAll(
	ctx context.Context,
	seq iter.Seq2[string, any],
) error {
	for path, value := range seq {
		if err := r.Register(ctx, path, value); err != nil {
			return err
		}
	}

	return nil
}

// RegisterMap registers the entries of bindings in sorted key order.
func (r *Registry) RegisterMap(
	ctx context.Context,
	bindings map[string]any,
) error {
	return r.RegisterAll(ctx, func(yield func(string, any) bool) {
		for _, path := range slices.Sorted(maps.Keys(bindings)) {
			if !yield(path, bindings[path]) {
				return
			}
		}
	})
}

func (r *Registry) register(ctx context.Context, p Path, value any) error {
	meta := Meta{
		Path: p.String(),
		Name: p.Name(),
		Kind: kindOf(value),
	}

	var leaves []Meta

	switch v := value.(type) {
	case Func:
		value = r.wrap(meta, v)
	case map[string]any:
		value, leaves = r.adopt(p, v, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.bindings[p.Root]

	if err := r.attach(p, value); err != nil {
		r.log().DebugContext(ctx, "register",
			slog.Any("binding", meta),
			slog.Any("error", err),
		)

		return err
	}

	if !existed {
		r.order = append(r.order, p.Root)
	}

	for key := range r.meta {
		if strings.HasPrefix(key, meta.Path+".") ||
			strings.HasPrefix(key, meta.Path+"[") {
			delete(r.meta, key)
		}
	}

	r.meta[meta.Path] = meta

	for _, leaf := range leaves {
		r.meta[leaf.Path] = leaf
	}

	r.version++

	r.log().DebugContext(ctx, "register",
		slog.Any("binding", meta),
		slog.Uint64("version", r.version),
	)

	return nil
}

// attach stores value at p, creating missing intermediate objects. Nothing
// is modified unless every existing intermediate is an object.
func (r *Registry) attach(p Path, value any) error {
	keys := append([]string{p.Root}, p.Segments...)
	last := len(keys) - 1

	obj := r.bindings

	for i, key := range keys[:last] {
		child, ok := obj[key]
		if !ok {
			break
		}

		next, isObj := child.(map[string]any)
		if !isObj {
			issue := "intermediate value is not an object"
			if child == nil {
				issue = "intermediate value is nil"
			}

			return ErrStructuralConflict.With(
				slog.String("path", p.String()),
				slog.String("segment", Path{Root: p.Root, Segments: p.Segments[:i]}.String()),
				slog.String("issue", issue),
				slog.String("type", typeName(child)),
			)
		}

		obj = next
	}

	obj = r.bindings

	for _, key := range keys[:last] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			obj[key] = next
		}

		obj = next
	}

	obj[keys[last]] = value

	return nil
}

// adopt copies the object value bound at p. Its [Func] leaves are wrapped
// as if each had been registered at its own path, and their metadata is
// appended to leaves.
func (r *Registry) adopt(
	p Path,
	obj map[string]any,
	leaves []Meta,
) (map[string]any, []Meta) {
	out := make(map[string]any, len(obj))

	for key, value := range obj {
		child := Path{Root: p.Root, Segments: append(slices.Clone(p.Segments), key)}

		switch v := value.(type) {
		case Func:
			meta := Meta{Path: child.String(), Name: key, Kind: KindFunc}
			value = r.wrap(meta, v)
			leaves = append(leaves, meta)
		case map[string]any:
			value, leaves = r.adopt(child, v, leaves)
		}

		out[key] = value
	}

	return out, leaves
}

// wrap adapts fn to the calling convention of expressions: the caller's
// arguments follow the bindings, which are read when the call is made.
func (r *Registry) wrap(meta Meta, fn Func) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		r.log().Trace("call",
			slog.Any("binding", meta),
			slog.Int("args", len(args)),
		)

		return fn(r.Snapshot(), args...)
	}
}

// Lookup returns the value bound at path. Object nodes are returned as
// copies.
func (r *Registry) Lookup(path string) (any, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := Bindings(r.bindings).lookup(p)
	if obj, isObj := value.(map[string]any); isObj {
		value = cloneTree(obj)
	}

	return value, ok
}

// Describe returns the metadata of the binding at path. Intermediate objects
// created on demand are described as [KindObject].
func (r *Registry) Describe(path string) (Meta, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return Meta{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := Bindings(r.bindings).lookup(p)
	if !ok {
		return Meta{}, false
	}

	if m, ok := r.meta[p.String()]; ok {
		return m, true
	}

	return Meta{Path: p.String(), Name: p.Name(), Kind: kindOf(value)}, true
}

// Names returns the top-level names in the order they were first
// registered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.order)
}

// Len returns the number of top-level names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Version returns a counter incremented by every successful registration.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// Snapshot returns an immutable copy of the binding tree. Successive calls
// without an intervening registration return the same snapshot, which must
// not be modified.
func (r *Registry) Snapshot() Bindings {
	return r.snapshot().bindings
}

func (r *Registry) snapshot() snapshot {
	r.mu.RLock()

	if r.snap.bindings != nil && r.snap.version == r.version {
		defer r.mu.RUnlock()

		return r.snap
	}

	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snap.bindings == nil || r.snap.version != r.version {
		r.snap = snapshot{
			bindings: cloneTree(r.bindings),
			names:    slices.Clone(r.order),
			version:  r.version,
		}
	}

	return r.snap
}

// cloneTree copies every object node of a binding tree. Leaves are shared.
func cloneTree(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))

	for key, value := range tree {
		if obj, ok := value.(map[string]any); ok {
			value = cloneTree(obj)
		}

		out[key] = value
	}

	return out
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}

	return reflect.TypeOf(value).String()
}
