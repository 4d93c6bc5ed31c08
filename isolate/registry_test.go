package isolate_test

import (
	"bytes"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/isolate/isolate"
	"github.com/ardnew/isolate/log"
)

func newRegistry(t *testing.T, bindings map[string]any) *isolate.Registry {
	t.Helper()

	r, err := isolate.New(t.Context(), bindings,
		isolate.WithLogger(log.Discard()))
	require.NoError(t, err)

	return r
}

func TestRegistry_Register_TopLevel(t *testing.T) {
	r := newRegistry(t, nil)

	require.NoError(t, r.Register(t.Context(), "answer", 42))

	v, ok := r.Lookup("answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, []string{"answer"}, r.Names())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Register_MaterializesNestedObjects(t *testing.T) {
	r := newRegistry(t, nil)

	require.NoError(t, r.Register(t.Context(), "a.b", 5))
	require.NoError(t, r.Register(t.Context(), `a["c"].d`, 6))
	require.NoError(t, r.Register(t.Context(), "a.list[0]", "zero"))

	v, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"b":    5,
		"c":    map[string]any{"d": 6},
		"list": map[string]any{"0": "zero"},
	}, v)

	assert.Equal(t, []string{"a"}, r.Names())
}

func TestRegistry_Register_InvalidNameIsReportedNotReturned(t *testing.T) {
	var buf bytes.Buffer

	r, err := isolate.New(t.Context(), map[string]any{"keep": true},
		isolate.WithLogger(log.Make(&buf, log.WithFormat(log.FormatText))))
	require.NoError(t, err)

	before := r.Snapshot()

	for _, name := range []string{"1abc", "a-b", "this", "a..b", "", "x[y]"} {
		assert.NoError(t, r.Register(t.Context(), name, "value"), name)
	}

	assert.Equal(t, []string{"keep"}, r.Names())
	assert.Equal(t, before, r.Snapshot())
	assert.Contains(t, buf.String(), "invalid binding name")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestRegistry_Register_StructuralConflict(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]any
		path     string
	}{
		{"leaf root", map[string]any{"a": 1}, "a.b"},
		{"nil root", map[string]any{"a": nil}, "a.b"},
		{"deep leaf", map[string]any{"a.b": "x"}, "a.b.c"},
		{"deep nil", map[string]any{"a.b": nil}, "a.b[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t, tt.existing)
			before := r.Snapshot()
			version := r.Version()

			err := r.Register(t.Context(), tt.path, 2)
			require.ErrorIs(t, err, isolate.ErrStructuralConflict)

			assert.Equal(t, before, r.Snapshot())
			assert.Equal(t, version, r.Version())
		})
	}
}

func TestRegistry_Register_ReplacesExistingLeaf(t *testing.T) {
	r := newRegistry(t, map[string]any{"a.b": 1})

	require.NoError(t, r.Register(t.Context(), "a.b", 2))
	require.NoError(t, r.Register(t.Context(), "a", "flat"))

	v, _ := r.Lookup("a")
	assert.Equal(t, "flat", v)
	assert.Equal(t, []string{"a"}, r.Names())

	_, ok := r.Describe("a.b")
	assert.False(t, ok)
}

func TestRegistry_Register_CopiesObjectValues(t *testing.T) {
	r := newRegistry(t, nil)
	obj := map[string]any{"x": 1}

	require.NoError(t, r.Register(t.Context(), "obj", obj))
	require.NoError(t, r.Register(t.Context(), "obj.y", 2))

	assert.Equal(t, map[string]any{"x": 1}, obj)

	v, _ := r.Lookup("obj")
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, v)
}

func TestRegistry_RegisterAll_StopsAtFirstConflict(t *testing.T) {
	r := newRegistry(t, nil)

	entries := [][2]any{
		{"a", 1},
		{"a.b", 2},
		{"c", 3},
	}

	err := r.RegisterAll(t.Context(), func(yield func(string, any) bool) {
		for _, e := range entries {
			if !yield(e[0].(string), e[1]) {
				return
			}
		}
	})
	require.ErrorIs(t, err, isolate.ErrStructuralConflict)

	assert.Equal(t, []string{"a"}, r.Names())
}

func TestRegistry_New_SortsSeedKeys(t *testing.T) {
	r := newRegistry(t, map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid.x": 3,
	})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegistry_New_ReturnsConflict(t *testing.T) {
	_, err := isolate.New(t.Context(), map[string]any{
		"a":   1,
		"a.b": 2,
	}, isolate.WithLogger(log.Discard()))

	assert.ErrorIs(t, err, isolate.ErrStructuralConflict)
}

func TestRegistry_WithBuiltins(t *testing.T) {
	r, err := isolate.New(t.Context(), map[string]any{"cwd": "/override"},
		isolate.WithLogger(log.Discard()), isolate.WithBuiltins())
	require.NoError(t, err)

	names := r.Names()
	assert.Contains(t, names, "file")
	assert.Contains(t, names, "platform")

	v, _ := r.Lookup("cwd")
	assert.Equal(t, "/override", v)

	meta, ok := r.Describe("file.exists")
	require.True(t, ok)
	assert.Equal(t, isolate.KindNative, meta.Kind)
}

func TestRegistry_Describe(t *testing.T) {
	r := newRegistry(t, nil)
	ctx := t.Context()

	require.NoError(t, r.Register(ctx, "is.string", isolate.Func(isString)))
	require.NoError(t, r.Register(ctx, "Player", isolate.Constructor(newPlayer)))
	require.NoError(t, r.Register(ctx, "strlen", func(s string) int { return len(s) }))
	require.NoError(t, r.Register(ctx, "pi", 3.14))

	tests := []struct {
		path string
		want isolate.Meta
	}{
		{"is.string", isolate.Meta{Path: "is.string", Name: "string", Kind: isolate.KindFunc}},
		{`is["string"]`, isolate.Meta{Path: "is.string", Name: "string", Kind: isolate.KindFunc}},
		{"is", isolate.Meta{Path: "is", Name: "is", Kind: isolate.KindObject}},
		{"Player", isolate.Meta{Path: "Player", Name: "Player", Kind: isolate.KindConstructor}},
		{"strlen", isolate.Meta{Path: "strlen", Name: "strlen", Kind: isolate.KindNative}},
		{"pi", isolate.Meta{Path: "pi", Name: "pi", Kind: isolate.KindValue}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := r.Describe(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := r.Describe("missing")
	assert.False(t, ok)
}

func TestRegistry_Snapshot_IsImmutable(t *testing.T) {
	r := newRegistry(t, map[string]any{"a.b": 1})

	snap := r.Snapshot()

	again := r.Snapshot()
	assert.Equal(t, snap, again)

	require.NoError(t, r.Register(t.Context(), "a.c", 2))

	assert.Equal(t, isolate.Bindings{"a": map[string]any{"b": 1}}, snap)

	after := r.Snapshot()
	assert.Equal(t, []string{"b", "c"}, slices.Sorted(maps.Keys(after["a"].(map[string]any))))
}

func TestRegistry_Func_ReceivesBindingsFirst(t *testing.T) {
	r := newRegistry(t, map[string]any{"greeting": "Hello"})

	var (
		gotBindings isolate.Bindings
		gotArgs     []any
	)

	require.NoError(t, r.Register(t.Context(), "greet",
		isolate.Func(func(b isolate.Bindings, args ...any) (any, error) {
			gotBindings, gotArgs = b, args

			return b["greeting"].(string) + ", " + args[0].(string), nil
		})))

	fn, ok := r.Lookup("greet")
	require.True(t, ok)

	out, err := r.Snapshot().Call("greet", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ann", out)
	assert.Equal(t, []any{"Ann"}, gotArgs)
	assert.Equal(t, "Hello", gotBindings["greeting"])

	wrapped, ok := fn.(func(...any) (any, error))
	require.True(t, ok, "expected wrapped Func, got %T", fn)

	require.NoError(t, r.Register(t.Context(), "greeting", "Howdy"))

	out, err = wrapped("Bob")
	require.NoError(t, err)
	assert.Equal(t, "Howdy, Bob", out)
}

func TestRegistry_Version(t *testing.T) {
	r := newRegistry(t, nil)
	v0 := r.Version()

	require.NoError(t, r.Register(t.Context(), "a", 1))
	assert.Equal(t, v0+1, r.Version())

	require.NoError(t, r.Register(t.Context(), "1bad", 1))
	assert.Equal(t, v0+1, r.Version())
}
