package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/isolate/isolate"
	"github.com/ardnew/isolate/log"
)

// Eval evaluates expressions against the loaded bindings and receiver.
type Eval struct {
	Expr    []string      `arg:""                                           help:"Expression(s) to evaluate, in order"                                      name:"expr"`
	Async   bool          `help:"Evaluate asynchronously and await each result"`
	Timeout time.Duration `default:"0s"                                     help:"Maximum time to await an asynchronous result (0 waits indefinitely)"`
	Output  string        `default:"native" enum:"native,json,yaml"         help:"Result format"                                                            short:"o"`
}

// Run executes the eval command. Evaluation stops at the first failing
// expression.
func (e *Eval) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	sess := sessionFrom(ctx)

	r, err := sess.registry(ctx)
	if err != nil {
		return err
	}

	receiver, err := sess.receiver(ctx)
	if err != nil {
		return err
	}

	ev := r.Build(receiver)
	w := stdout(ctx)

	for _, source := range e.Expr {
		out, err := e.evaluate(ctx, ev, source)
		if err != nil {
			return err
		}

		log.TraceContext(ctx, "eval result",
			slog.String("source", source),
			slog.Bool("async", e.Async),
		)

		if err := writeResult(ctx, w, out, e.Output); err != nil {
			return err
		}
	}

	return nil
}

func (e *Eval) evaluate(
	ctx context.Context,
	ev *isolate.Evaluator,
	source string,
) (any, error) {
	if !e.Async {
		return ev.Evaluate(ctx, source)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	return ev.EvaluateAsync(ctx, source).Await(ctx)
}
