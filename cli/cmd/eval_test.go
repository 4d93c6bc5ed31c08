package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/isolate/isolate"
	"github.com/ardnew/isolate/pkg"
)

// commandContext returns a context carrying a session over the given
// bindings and receiver files, and the buffer commands print to.
func commandContext(t *testing.T, bindings, receiver string) (context.Context, *bytes.Buffer) {
	t.Helper()

	var (
		buf  bytes.Buffer
		sess Session
	)

	if bindings != "" {
		sess.Sources = []string{writeFile(t, "bindings.yaml", bindings)}
	}

	if receiver != "" {
		sess.Receiver = writeFile(t, "receiver.yaml", receiver)
	}

	ctx := WithContext(context.Background(), &kong.Context{Kong: &kong.Kong{Stdout: &buf}})

	return WithSession(ctx, sess), &buf
}

func TestEval_Run(t *testing.T) {
	tests := []struct {
		name string
		eval Eval
		want string
	}{
		{
			name: "native",
			eval: Eval{Expr: []string{`greet(this.name)`, `limits[0] * 2`}},
			want: "Hello, Ada\n20\n",
		},
		{
			name: "async",
			eval: Eval{Expr: []string{`this.name`}, Async: true, Timeout: time.Second},
			want: "Ada\n",
		},
		{
			name: "json",
			eval: Eval{Expr: []string{`{"n": limits[0], "s": greeting}`}, Output: outputJSON},
			want: "{\n  \"n\": 10,\n  \"s\": \"Hello\"\n}\n",
		},
		{
			name: "yaml",
			eval: Eval{Expr: []string{`[this.name, len(this.name)]`}, Output: outputYAML},
			want: "- Ada\n- 3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, buf := commandContext(t, bindingsYAML, "name: Ada\n")

			require.NoError(t, tt.eval.Run(ctx))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestEval_RunStopsAtFirstFailure(t *testing.T) {
	ctx, buf := commandContext(t, bindingsYAML, "")

	e := Eval{Expr: []string{`greeting`, `nowhere`, `neg`}}

	err := e.Run(ctx)
	require.ErrorIs(t, err, isolate.ErrUndefinedName)
	assert.Equal(t, "Hello\n", buf.String())

	e.Async = true

	buf.Reset()
	require.ErrorIs(t, e.Run(ctx), isolate.ErrUndefinedName)
}

func TestEval_RunBadSource(t *testing.T) {
	ctx, _ := commandContext(t, "constants: [", "")

	err := (&Eval{Expr: []string{`1`}}).Run(ctx)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNames_Run(t *testing.T) {
	ctx, buf := commandContext(t, "constants:\n  b: 1\n  a.x: 2\nfunctions:\n  f:\n    expr: b\n", "")

	require.NoError(t, (&Names{}).Run(ctx))
	assert.Equal(t, "a\nb\nf\n", buf.String())

	buf.Reset()

	require.NoError(t, (&Names{Long: true}).Run(ctx))
	assert.Equal(t, "a  Object\nb  Value\nf  Func\n", buf.String())
}

func TestVersion_Run(t *testing.T) {
	ctx, buf := commandContext(t, "", "")

	require.NoError(t, Version{}.Run(ctx))
	assert.Equal(t, pkg.Name+" "+pkg.Version()+"\n", buf.String())
}
