package isolate

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/isolate/log"
)

// Lambda returns a [Func] whose body is the expression source. When called,
// params are bound to the call's arguments and every other name resolves
// against the bindings the call receives. Parameters shadow bindings of the
// same name.
//
// The body is parsed immediately so syntax errors surface before
// registration; it is compiled on each call, when the bindings are known.
func Lambda(params []string, source string) (Func, error) {
	for _, param := range params {
		if !IsIdentifier(param) {
			return nil, ErrInvalidName.With(
				slog.String("param", param),
				slog.String("source", source),
			)
		}
	}

	lowered := lowerNew(source)

	if _, err := parser.Parse(lowered); err != nil {
		return nil, ErrCompile.Wrap(rebind(err, source)).With(slog.String("source", source))
	}

	return func(b Bindings, args ...any) (any, error) {
		if len(args) != len(params) {
			return nil, ErrEvaluate.Wrap(fmt.Errorf(
				"expected %d arguments, got %d", len(params), len(args),
			)).With(slog.String("source", source))
		}

		env := make(map[string]any, len(b)+len(params))
		maps.Copy(env, b)

		for i, param := range params {
			env[param] = args[i]
		}

		prog, err := compile(source, env, append(b.Names(), params...), log.Default())
		if err != nil {
			return nil, err
		}

		out, err := vm.Run(prog, env)
		if err != nil {
			return nil, runError(source, err)
		}

		return out, nil
	}, nil
}
