package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/isolate/isolate"
	"github.com/ardnew/isolate/log"
)

// document is the layout of a bindings file:
//
//	constants:
//	  greeting: Hello
//	  limits[0]: 10
//	  'cfg["log-level"]': debug
//	functions:
//	  greet:
//	    params: [name]
//	    expr: greeting + ", " + name
//
// Keys are binding paths. JSON documents are accepted as well.
type document struct {
	Constants map[string]any      `yaml:"constants"`
	Functions map[string]function `yaml:"functions"`
}

// function defines an expression-bodied [isolate.Func].
type function struct {
	Params []string `yaml:"params"`
	Expr   string   `yaml:"expr"`
}

// registry builds a registry from the session's bindings files. Within a
// file, constants are registered before functions, each in sorted path
// order. Later files override earlier ones.
func (s Session) registry(ctx context.Context) (*isolate.Registry, error) {
	var opts []isolate.Option
	if s.Builtins {
		opts = append(opts, isolate.WithBuiltins())
	}

	r, err := isolate.New(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}

	for _, src := range s.Sources {
		var doc document

		if err := decodeFile(ctx, src, &doc); err != nil {
			return nil, err
		}

		if err := register(ctx, r, src, doc); err != nil {
			return nil, err
		}
	}

	log.DebugContext(ctx, "registry loaded",
		slog.Int("sources", len(s.Sources)),
		slog.Int("names", r.Len()),
		slog.Bool("builtins", s.Builtins),
	)

	return r, nil
}

func register(
	ctx context.Context,
	r *isolate.Registry,
	src string,
	doc document,
) error {
	bind := func(path string, value any) error {
		// The registry only reports invalid names; a bindings file
		// containing one is rejected.
		_, err := isolate.ParsePath(path)
		if err == nil {
			err = r.Register(ctx, path, value)
		}

		if err != nil {
			return ErrRegister.Wrap(err).With(
				slog.String("source", src),
				slog.String("path", path),
			)
		}

		return nil
	}

	for _, path := range slices.Sorted(maps.Keys(doc.Constants)) {
		if err := bind(path, normalize(doc.Constants[path])); err != nil {
			return err
		}
	}

	for _, path := range slices.Sorted(maps.Keys(doc.Functions)) {
		def := doc.Functions[path]

		fn, err := isolate.Lambda(def.Params, def.Expr)
		if err != nil {
			return ErrFunction.Wrap(err).With(
				slog.String("source", src),
				slog.String("path", path),
			)
		}

		if err := bind(path, fn); err != nil {
			return err
		}
	}

	return nil
}

// receiver decodes the session's receiver file. Without one the receiver
// is nil.
func (s Session) receiver(ctx context.Context) (any, error) {
	if s.Receiver == "" {
		return nil, nil
	}

	var v any
	if err := decodeFile(ctx, s.Receiver, &v); err != nil {
		return nil, err
	}

	return normalize(v), nil
}

// decodeFile decodes the YAML or JSON document in path ("-" for stdin)
// into v. An empty document leaves v unchanged.
func decodeFile(ctx context.Context, path string, v any) error {
	rc, err := open(path)
	if err != nil {
		return ErrReadSource.Wrap(err).With(slog.String("source", path))
	}

	defer rc.Close()

	err = yaml.NewDecoder(rc).DecodeContext(ctx, v)
	if err != nil && !errors.Is(err, io.EOF) {
		return ErrDecode.Wrap(err).With(slog.String("source", path))
	}

	return nil
}

func open(path string) (io.ReadCloser, error) {
	if path == stdinSource {
		return readahead.NewReader(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return readahead.NewReadCloser(f), nil
}

// normalize converts decoded integers to int where they fit, so documents
// and expression literals agree on numeric types.
func normalize(v any) any {
	switch v := v.(type) {
	case uint64:
		if v <= math.MaxInt {
			return int(v)
		}
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v)
		}
	case map[string]any:
		for key, value := range v {
			v[key] = normalize(value)
		}
	case []any:
		for i, value := range v {
			v[i] = normalize(value)
		}
	}

	return v
}
