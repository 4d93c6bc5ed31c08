package cmd

import (
	"context"

	"github.com/ardnew/isolate/cli/cmd/repl"
	"github.com/ardnew/isolate/log"
)

// Repl starts an interactive evaluation session.
type Repl struct{}

// Run executes the repl command.
func (Repl) Run(ctx context.Context) error {
	sess := sessionFrom(ctx)

	r, err := sess.registry(ctx)
	if err != nil {
		return err
	}

	receiver, err := sess.receiver(ctx)
	if err != nil {
		return err
	}

	return repl.Run(ctx, r, receiver, sess.CacheDir, log.Default())
}
