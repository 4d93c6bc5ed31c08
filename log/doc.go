// Package log provides a small structured logging layer over [log/slog].
//
// A [Logger] is an immutable value: every option produces a new Logger with
// its own handler, so loggers can be shared between goroutines freely.
//
// # Basic Usage
//
//	logger := log.Make(os.Stderr)
//	logger.Info("evaluator built", slog.Int("bindings", 4))
//
// # Configuration
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText),
//		log.WithTimeLayout("kitchen"),
//		log.WithCaller(true))
//
// # Levels
//
// In addition to the four [slog] levels, [LevelTrace] sits below
// [LevelDebug] and is used for the most verbose diagnostics (expression
// compilation, cache hits).
//
// # Process Logger
//
// The package-level functions ([Debug], [Info], [Warn], [Error] and their
// Context variants) write through a process-wide logger that is reconfigured
// with [Config] and retrieved with [Default].
package log
