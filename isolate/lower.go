package isolate

import "strings"

// lowerNew rewrites construction expressions (new Name(args)) into plain
// calls (Name(args)), since constructors are ordinary functions to the
// expression language. The keyword is blanked only where it stands alone
// before an identifier; string literals and comments are left untouched,
// as are properties and bindings that happen to be named new.
//
// The keyword is replaced by spaces of the same width, so positions in the
// lowered source match the original.
func lowerNew(source string) string {
	if !strings.Contains(source, "new") {
		return source
	}

	var sb strings.Builder

	sb.Grow(len(source))

	for i := 0; i < len(source); {
		c := source[i]

		switch {
		case c == '"' || c == '\'' || c == '`':
			end := skipString(source, i)
			sb.WriteString(source[i:end])
			i = end

		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				end = len(source) - i
			}

			sb.WriteString(source[i : i+end])
			i += end

		case c == '/' && i+1 < len(source) && source[i+1] == '*':
			end := strings.Index(source[i+2:], "*/")
			if end < 0 {
				end = len(source) - i
			} else {
				end += 4
			}

			sb.WriteString(source[i : i+end])
			i += end

		case isIdentByte(c):
			end := i
			for end < len(source) && isIdentByte(source[end]) {
				end++
			}

			word := source[i:end]

			if word == "new" && !isMemberAccess(source, i) {
				next := end
				for next < len(source) && isSpace(source[next]) {
					next++
				}

				if next > end && next < len(source) && isIdentStart(source[next]) {
					sb.WriteString(strings.Repeat(" ", len(word)))
					i = end

					continue
				}
			}

			sb.WriteString(word)
			i = end

		default:
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String()
}

// skipString returns the index just past the string literal starting at i.
// An unterminated literal extends to the end of source.
func skipString(source string, i int) int {
	quote := source[i]

	for j := i + 1; j < len(source); j++ {
		switch source[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			return j + 1
		}
	}

	return len(source)
}

// isMemberAccess reports whether the word at i is preceded by a member
// access operator (a.new, a?.new).
func isMemberAccess(source string, i int) bool {
	j := i - 1
	for j >= 0 && isSpace(source[j]) {
		j--
	}

	return j >= 0 && source[j] == '.'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentByte(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
