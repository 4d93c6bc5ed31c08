package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the writer commands print results to.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// Session holds the global options shared by every command.
type Session struct {
	// Sources are the bindings files, in registration order. "-" reads
	// stdin after every named file.
	Sources []string
	// Receiver is the file holding the receiver document, if any.
	Receiver string
	// Builtins seeds the registry with the builtin vocabulary.
	Builtins bool
	// CacheDir holds transient files such as REPL history.
	CacheDir string
}

type sessionKey struct{}

// WithSession returns a new context.Context carrying s. Duplicate sources
// are removed.
func WithSession(ctx context.Context, s Session) context.Context {
	s.Sources = uniqueSources(s.Sources)

	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)

	return s
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// uniqueSources returns sources with duplicates removed, comparing files by
// device and inode after resolving symlinks. Every occurrence of "-" (or a
// path naming stdin itself) collapses into a single "-" placed last. Paths
// that cannot be resolved are kept so that opening them reports the error.
func uniqueSources(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}

	out := make([]string, 0, len(sources))
	seen := make(map[fileKey]struct{})

	stdinKey, stdinOK := statKey(os.Stdin.Stat())
	hasStdin := false

	for _, src := range sources {
		if src == stdinSource {
			hasStdin = true

			continue
		}

		key, ok := resolveKey(src)
		if !ok {
			out = append(out, src)

			continue
		}

		if stdinOK && key == stdinKey {
			hasStdin = true

			continue
		}

		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, src)
	}

	if hasStdin {
		out = append(out, stdinSource)
	}

	return out
}

// resolveKey returns the fileKey of the file path refers to.
func resolveKey(path string) (fileKey, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileKey{}, false
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fileKey{}, false
	}

	return statKey(os.Stat(resolved))
}

// statKey creates a fileKey from the result of a stat call.
func statKey(info os.FileInfo, err error) (fileKey, bool) {
	if err != nil || info == nil {
		return fileKey{}, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}
