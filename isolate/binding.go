package isolate

import (
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
)

// Func is a binding that receives the registry's current bindings as an
// implicit first argument. Expressions call it with the remaining arguments
// only: a Func registered as "greet" is invoked as greet(name).
type Func func(b Bindings, args ...any) (any, error)

// Constructor is a binding that builds values. It is stored as-is and never
// receives the bindings, so expressions invoke it with exactly the
// arguments written, optionally preceded by the new keyword:
// new Player(name, score).
type Constructor func(args ...any) (any, error)

// Kind classifies a registered binding.
type Kind int

//go:generate go tool stringer --linecomment --type Kind --output binding_string.go

const (
	// KindValue is any non-callable leaf value.
	KindValue Kind = iota // Value

	// KindObject is an intermediate node holding nested bindings.
	KindObject // Object

	// KindFunc is a [Func] wrapped to receive the bindings.
	KindFunc // Func

	// KindConstructor is a [Constructor].
	KindConstructor // Constructor

	// KindNative is any other Go function, stored unwrapped.
	KindNative // Native
)

func kindOf(value any) Kind {
	switch value.(type) {
	case Func:
		return KindFunc
	case Constructor:
		return KindConstructor
	case map[string]any:
		return KindObject
	}

	if value != nil && reflect.TypeOf(value).Kind() == reflect.Func {
		return KindNative
	}

	return KindValue
}

// Meta describes a registered binding.
type Meta struct {
	// Path is the canonical path of the binding.
	Path string
	// Name is the display name of the binding: the final path segment.
	Name string
	Kind Kind
}

// LogValue implements slog.LogValuer.
func (m Meta) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", m.Path),
		slog.String("name", m.Name),
		slog.String("kind", m.Kind.String()),
	)
}

// Bindings is an immutable view of a registry's binding tree. Nested
// objects are map[string]any values.
type Bindings map[string]any

// Names returns the top-level names in sorted order.
func (b Bindings) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

// Lookup returns the value addressed by path.
func (b Bindings) Lookup(path string) (any, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}

	return b.lookup(p)
}

func (b Bindings) lookup(p Path) (any, bool) {
	value, ok := b[p.Root]

	for _, seg := range p.Segments {
		if !ok {
			return nil, false
		}

		obj, isObj := value.(map[string]any)
		if !isObj {
			return nil, false
		}

		value, ok = obj[seg]
	}

	return value, ok
}

// Call invokes the function addressed by path with args. Registered [Func]
// values receive the bindings implicitly, as they do from expressions.
func (b Bindings) Call(path string, args ...any) (any, error) {
	fn, ok := b.Lookup(path)
	if !ok {
		return nil, ErrUndefinedName.With(slog.String("name", path))
	}

	return invoke(fn, args...)
}

// invoke calls fn with args. The common binding signatures are called
// directly; other functions are called through reflection, converting each
// argument to the parameter type when possible. A trailing error result is
// returned as the error.
func invoke(fn any, args ...any) (any, error) {
	switch f := fn.(type) {
	case func(...any) (any, error):
		return f(args...)
	case Constructor:
		return f(args...)
	case func(...any) any:
		return f(args...), nil
	case nil:
		return nil, ErrNotCallable.With(slog.String("type", "nil"))
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, ErrNotCallable.With(slog.String("type", v.Type().String()))
	}

	t := v.Type()

	in, err := callArgs(t, args)
	if err != nil {
		return nil, err
	}

	out := v.Call(in)

	errType := reflect.TypeFor[error]()

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errType {
			err, _ := out[0].Interface().(error)

			return nil, err
		}

		return out[0].Interface(), nil
	default:
		if t.Out(len(out)-1) == errType {
			err, _ := out[len(out)-1].Interface().(error)

			return out[0].Interface(), err
		}

		return out[0].Interface(), nil
	}
}

func callArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := t.NumIn()

	if (!t.IsVariadic() && len(args) != numIn) ||
		(t.IsVariadic() && len(args) < numIn-1) {
		return nil, ErrEvaluate.Wrap(fmt.Errorf(
			"expected %d arguments, got %d", numIn, len(args),
		))
	}

	in := make([]reflect.Value, len(args))

	for i, arg := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= numIn-1 {
			pt = t.In(numIn - 1).Elem()
		} else {
			pt = t.In(i)
		}

		if arg == nil {
			in[i] = reflect.Zero(pt)

			continue
		}

		av := reflect.ValueOf(arg)

		switch {
		case av.Type().AssignableTo(pt):
			in[i] = av
		case av.Type().ConvertibleTo(pt) &&
			(pt.Kind() != reflect.String || av.Kind() == reflect.String):
			in[i] = av.Convert(pt)
		default:
			return nil, ErrEvaluate.Wrap(fmt.Errorf(
				"argument %d: cannot use %s as %s", i+1, av.Type(), pt,
			))
		}
	}

	return in, nil
}
