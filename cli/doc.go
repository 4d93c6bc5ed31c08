// Package cli contains the command line interface for isolate.
//
// # Usage
//
//	isolate [flags] <command> [args]
//
// Without a command, the arguments are evaluated as expressions:
//
//	isolate -r person.yaml 'len(this.name)'
//	isolate -b bindings.yaml -r person.yaml 'greet(this.name)' -o json
//	isolate -b bindings.yaml names -l
//	isolate -b bindings.yaml repl
//
// # Files
//
// Bindings files (-b, repeatable) declare constants and expression-bodied
// functions by path:
//
//	constants:
//	  greeting: Hello
//	  limits[0]: 10
//	functions:
//	  greet:
//	    params: [name]
//	    expr: greeting + ", " + name
//
// The receiver file (-r) is any YAML or JSON document; it is reachable from
// expressions as this.
//
// # Configuration
//
// Flag defaults are read from $XDG_CONFIG_HOME/isolate/config.yaml, a
// mapping of flag names to values. Mappings named after a command hold that
// command's flags:
//
//	log-level: debug
//	eval:
//	  output: yaml
//
// Command-line flags override config file values.
//
// # Logging Options
//
//   - --log-level: minimum log level (trace, debug, info, warn, error)
//   - --log-format: output format (json, text)
//   - --log-time-layout: timestamp format (RFC3339, Kitchen, none, ...)
//   - --log-caller: include caller information
//   - --log-pretty: colorized pretty printing
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof
//
//   - --pprof-mode: profiling mode (see package profile)
//   - --pprof-dir: profile output directory
//     (default $XDG_CACHE_HOME/isolate/pprof)
package cli
