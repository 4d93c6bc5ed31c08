package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/isolate/log"
)

// resolve returns a [kong.ConfigurationLoader] for YAML (or JSON) config
// files. The document is a mapping of flag names to values:
//
//	log-level: debug
//	log-format: text
//	builtins: false
//	eval:
//	  output: json
//
// Nested mappings qualify flags of the named subcommand. Underscores may be
// used in place of hyphens. Command-line flags override config file values.
//
// A config file that cannot be decoded is reported and ignored.
func resolve(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		err := yaml.NewDecoder(r).DecodeContext(ctx, &doc)
		if err != nil && !errors.Is(err, io.EOF) {
			log.WarnContext(ctx, "ignoring configuration",
				slog.String("error", err.Error()),
			)

			return config{}, nil
		}

		return flatten(config{}, "", doc), nil
	}
}

// config implements [kong.Resolver] over a flattened configuration document.
// Keys are flag names, optionally qualified by the command path
// ("eval.output").
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(
	_ *kong.Context,
	parent *kong.Path,
	flag *kong.Flag,
) (any, error) {
	names := []string{flag.Name}

	if parent != nil && parent.Command != nil {
		scope := strings.ReplaceAll(parent.Command.Path(), " ", ".")
		names = append([]string{scope + "." + flag.Name}, names...)
	}

	for _, name := range names {
		for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
			if value, ok := c[key]; ok {
				return value, nil
			}
		}
	}

	return nil, nil
}

// flatten copies doc into c with nested mapping keys joined by dots. Kong
// parses scalar values from their string form.
func flatten(c config, prefix string, doc map[string]any) config {
	for key, value := range doc {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			flatten(c, name, v)
		case string:
			c[name] = v
		case bool:
			c[name] = strconv.FormatBool(v)
		case []any:
			items := make([]string, len(v))
			for i, item := range v {
				items[i] = fmt.Sprint(item)
			}

			c[name] = strings.Join(items, ",")
		case nil:
		default:
			c[name] = fmt.Sprint(v)
		}
	}

	return c
}
