package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
)

// Names lists the top-level binding names in registration order.
type Names struct {
	Long bool `help:"Include the kind of each binding" short:"l"`
}

// Run executes the names command.
func (n *Names) Run(ctx context.Context) error {
	r, err := sessionFrom(ctx).registry(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout(ctx), 0, 4, 2, ' ', 0)

	for _, name := range r.Names() {
		if !n.Long {
			fmt.Fprintln(w, name)

			continue
		}

		meta, _ := r.Describe(name)
		fmt.Fprintf(w, "%s\t%s\n", name, meta.Kind)
	}

	return w.Flush()
}
