// Package cmd implements the isolate subcommands: eval, repl, names and
// version.
//
// Every command runs against a registry built from the global session
// options (see [WithSession]): bindings files, an optional receiver file and
// the builtin vocabulary.
package cmd
