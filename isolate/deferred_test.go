package isolate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/isolate/isolate"
)

func TestDeferred_Resolve(t *testing.T) {
	d := isolate.Resolve(7)
	assert.True(t, d.Settled())

	out, err := d.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 7, out)

	assert.Same(t, d, isolate.Resolve(d))
}

func TestDeferred_Reject(t *testing.T) {
	errBoom := errors.New("boom")

	out, err := isolate.Reject(errBoom).Await(t.Context())
	assert.Nil(t, out)
	assert.Same(t, errBoom, err)
}

func TestDeferred_Go(t *testing.T) {
	release := make(chan struct{})

	d := isolate.Go(func() (any, error) {
		<-release

		return "done", nil
	})

	assert.False(t, d.Settled())
	close(release)

	out, err := d.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	select {
	case <-d.Done():
	default:
		t.Fatal("expected Done to be closed after Await")
	}
}

func TestDeferred_GoRecoversPanic(t *testing.T) {
	_, err := isolate.Go(func() (any, error) {
		panic("kaboom")
	}).Await(t.Context())

	require.ErrorIs(t, err, isolate.ErrEvaluate)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestDeferred_AwaitContextCanceled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	d := isolate.Go(func() (any, error) {
		<-release

		return nil, nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := d.Await(ctx)
	require.ErrorIs(t, err, isolate.ErrAwait)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, d.Settled())
}

func TestDeferred_AwaitFlattens(t *testing.T) {
	inner := isolate.Go(func() (any, error) { return "inner", nil })
	outer := isolate.Go(func() (any, error) { return inner, nil })

	out, err := outer.Await(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "inner", out)
}

func TestDeferred_Then(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		source  *isolate.Deferred
		onValue func(any) (any, error)
		onError func(error) (any, error)
		want    any
		wantErr error
	}{
		{
			name:    "value",
			source:  isolate.Resolve(2),
			onValue: func(v any) (any, error) { return v.(int) * 10, nil },
			want:    20,
		},
		{
			name:    "recover",
			source:  isolate.Reject(errBoom),
			onError: func(error) (any, error) { return "recovered", nil },
			want:    "recovered",
		},
		{
			name:    "pass error",
			source:  isolate.Reject(errBoom),
			onValue: func(any) (any, error) { return "unreachable", nil },
			wantErr: errBoom,
		},
		{
			name:   "pass value",
			source: isolate.Resolve("same"),
			want:   "same",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.source.Then(tt.onValue, tt.onError).Await(t.Context())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvaluator_EvaluateAsync(t *testing.T) {
	errBoom := errors.New("boom")

	var produced *isolate.Deferred

	r := newRegistry(t, map[string]any{
		"length": isolate.Func(length),
		"explode": isolate.Func(func(isolate.Bindings, ...any) (any, error) {
			return nil, errBoom
		}),
		"later": isolate.Func(func(_ isolate.Bindings, args ...any) (any, error) {
			produced = isolate.Go(func() (any, error) { return args[0], nil })

			return produced, nil
		}),
	})

	ev := r.Build(twain)

	t.Run("resolves", func(t *testing.T) {
		out, err := ev.EvaluateAsync(t.Context(), "length(this.name)").Await(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 10, out)
	})

	t.Run("rejects with binding error", func(t *testing.T) {
		_, syncErr := ev.Evaluate(t.Context(), "explode()")

		d := ev.EvaluateAsync(t.Context(), "explode()")
		assert.True(t, d.Settled())

		_, asyncErr := d.Await(t.Context())
		assert.Same(t, errBoom, asyncErr)
		assert.Same(t, syncErr, asyncErr)
	})

	t.Run("rejects with undefined name", func(t *testing.T) {
		_, err := ev.EvaluateAsync(t.Context(), "nope").Await(t.Context())
		assert.ErrorIs(t, err, isolate.ErrUndefinedName)
	})

	t.Run("passes deferred through", func(t *testing.T) {
		d := ev.EvaluateAsync(t.Context(), "later(this.name)")
		assert.Same(t, produced, d)

		out, err := d.Await(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "Mark Twain", out)
	})
}
