package isolate

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var identPattern = regexp.MustCompile(`^[$A-Za-z_][$A-Za-z0-9_]*$`)

// ReceiverName is the identifier through which expressions reach the
// receiver of an [Evaluator].
const ReceiverName = "this"

// reserved holds identifiers that can never be bound at the root of a path:
// the receiver name and the keywords of the expression language.
var reserved = map[string]struct{}{
	ReceiverName: {},
	"$env":       {},
	"new":        {},
	"true":       {},
	"false":      {},
	"nil":        {},
	"not":        {},
	"in":         {},
	"and":        {},
	"or":         {},
	"matches":    {},
	"contains":   {},
	"startsWith": {},
	"endsWith":   {},
	"let":        {},
	"if":         {},
	"else":       {},
}

// IsIdentifier reports whether name may be bound as a top-level name.
func IsIdentifier(name string) bool {
	if _, ok := reserved[name]; ok {
		return false
	}

	return identPattern.MatchString(name)
}

// Path addresses a binding: a root identifier followed by zero or more
// property segments. Numeric bracket segments are stored in decimal form.
type Path struct {
	Root     string
	Segments []string
}

// ParsePath splits s into its root identifier and property segments.
// Accepted forms are a bare identifier, dotted segments (a.b.c), quoted
// bracket segments (a["b"], a['b']) and numeric bracket segments (a[0]),
// in any combination. Only the root is checked against identifier syntax.
func ParsePath(s string) (Path, error) {
	invalid := func(issue string) error {
		return ErrInvalidName.With(
			slog.String("path", s),
			slog.String("issue", issue),
		)
	}

	end := strings.IndexAny(s, ".[")
	if end < 0 {
		end = len(s)
	}

	p := Path{Root: s[:end]}

	if !IsIdentifier(p.Root) {
		return Path{}, invalid("root is not a valid identifier")
	}

	for rest := s[end:]; rest != ""; {
		var (
			seg string
			ok  bool
		)

		switch rest[0] {
		case '.':
			seg, rest, ok = scanDotted(rest[1:])
			if !ok {
				return Path{}, invalid("empty segment")
			}

		case '[':
			seg, rest, ok = scanBracket(rest[1:])
			if !ok {
				return Path{}, invalid("malformed bracket segment")
			}

		default:
			return Path{}, invalid("unexpected character " + strconv.QuoteRune(rune(rest[0])))
		}

		p.Segments = append(p.Segments, seg)
	}

	return p, nil
}

func scanDotted(s string) (seg, rest string, ok bool) {
	end := strings.IndexAny(s, ".[")
	if end < 0 {
		end = len(s)
	}

	return s[:end], s[end:], end > 0
}

func scanBracket(s string) (seg, rest string, ok bool) {
	if s == "" {
		return "", "", false
	}

	if q := s[0]; q == '"' || q == '\'' {
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case q:
				if i+1 >= len(s) || s[i+1] != ']' {
					return "", "", false
				}

				seg, ok = unquote(s[:i+1])

				return seg, s[i+2:], ok
			}
		}

		return "", "", false
	}

	end := strings.IndexByte(s, ']')
	if end <= 0 {
		return "", "", false
	}

	n, err := strconv.ParseUint(s[:end], 10, 63)
	if err != nil {
		return "", "", false
	}

	return strconv.FormatUint(n, 10), s[end+1:], true
}

// unquote decodes a double- or single-quoted segment. Single-quoted text is
// re-quoted with double quotes so both forms share Go escape rules.
func unquote(q string) (string, bool) {
	if q[0] == '\'' {
		var sb strings.Builder

		sb.WriteByte('"')

		for i := 1; i < len(q)-1; i++ {
			switch c := q[i]; {
			case c == '\\' && q[i+1] == '\'':
				sb.WriteByte('\'')
				i++
			case c == '\\':
				sb.WriteString(q[i : i+2])
				i++
			case c == '"':
				sb.WriteString(`\"`)
			default:
				sb.WriteByte(c)
			}
		}

		sb.WriteByte('"')
		q = sb.String()
	}

	s, err := strconv.Unquote(q)

	return s, err == nil
}

// Nested reports whether the path has property segments.
func (p Path) Nested() bool { return len(p.Segments) > 0 }

// Name returns the final segment of the path, or the root of a bare name.
func (p Path) Name() string {
	if n := len(p.Segments); n > 0 {
		return p.Segments[n-1]
	}

	return p.Root
}

// String returns the canonical form of the path: identifier-like segments
// use dotted notation, decimal segments use numeric brackets and everything
// else uses double-quoted brackets.
func (p Path) String() string {
	var sb strings.Builder

	sb.WriteString(p.Root)

	for _, seg := range p.Segments {
		switch {
		case identPattern.MatchString(seg):
			sb.WriteString("." + seg)
		case isDecimal(seg):
			sb.WriteString("[" + seg + "]")
		default:
			sb.WriteString("[" + strconv.Quote(seg) + "]")
		}
	}

	return sb.String()
}

func isDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
