// Package isolate evaluates free-form expression text against a declared
// vocabulary of named bindings and a receiver object.
//
// A [Registry] owns the bindings. Each binding is addressed by a path whose
// root becomes a free variable of evaluated expressions; nested paths
// materialize intermediate objects on demand:
//
//	r, _ := isolate.New(ctx, nil)
//	r.Register(ctx, "is.string", isolate.Func(isString))
//	r.Register(ctx, "is.number", isolate.Func(isNumber))
//	r.Register(ctx, "limits[0]", 10)
//
// An [Evaluator] is built from the registry and a receiver, reachable from
// expressions as this. Expression syntax is that of expr-lang
// (https://expr-lang.org), plus construction with the new keyword:
//
//	ev := r.Build(map[string]any{"name": "Mark Twain"})
//	ev.Evaluate(ctx, `len(this.name)`)            // 10
//	ev.Evaluate(ctx, `is.string(this.name)`)      // true
//	ev.Evaluate(ctx, `new Player(this.name, 1)`)  // *Player
//
// Expressions have no assignment. They read the receiver, and it changes
// only when a binding called with this (or a member of it) mutates the
// value it is handed, such as a pointer or map:
//
//	ev.Evaluate(ctx, `rename(this, "Samuel Clemens")`)
//
// # Binding kinds
//
// The calling convention of a function binding is declared by its type:
//
//   - [Func] receives the registry's bindings, as of the call, before the
//     arguments written in the expression.
//   - [Constructor] and every other Go function receive exactly the
//     arguments written.
//
// # Synchronous and asynchronous evaluation
//
// [Evaluator.Evaluate] returns a value or an error. An error produced by a
// binding is returned unchanged. [Evaluator.EvaluateAsync] never fails
// directly; it returns a [Deferred] that is rejected with the same error. If
// an expression yields a Deferred (for example by calling a binding that
// returns one from [Go]) it is handed back as-is.
//
// # Visibility
//
// An evaluator sees only the bindings of the registry that built it, as they
// were when it was built. Registering afterward marks it [Evaluator.Stale]
// without changing what it sees.
//
// # Process default
//
// [Register], [Build], [Eval] and [EvalAsync] operate on a process-wide
// registry returned by [Default]. Tests may swap it with [SetDefault].
//
// Isolation is by name only. Expressions may call anything reachable from
// the bindings and the receiver.
package isolate
