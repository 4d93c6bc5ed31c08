package repl

import (
	"reflect"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr/builtin"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/isolate/isolate"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "set", "this", "clear", "quit"}

// isWordBoundary reports whether r delimits words for completion. Every
// boundary is a single byte.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '^',
		'<', '>', '=', '!', '~', '#',
		'&', '|', ',', '?', ':', ';',
		'"', '\'', '`':
		return true
	}

	return false
}

// wordBounds returns the word containing cursor and its byte offsets in
// input. The word is empty when cursor sits between two boundaries.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(max(cursor, 0), len(input))

	start = strings.LastIndexFunc(input[:cursor], isWordBoundary) + 1

	end = len(input)
	if i := strings.IndexFunc(input[cursor:], isWordBoundary); i >= 0 {
		end = cursor + i
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain preceding the word at
// wordStart. For "x + server.http.ho" and the word "ho" it returns
// "server.http". Words not preceded by a dot have no parent.
func parentPath(input string, wordStart int) string {
	if wordStart == 0 || input[wordStart-1] != '.' {
		return ""
	}

	chain := strings.TrimRight(input[:wordStart], ".")

	start := strings.LastIndexFunc(chain, func(r rune) bool {
		return r != '.' && isWordBoundary(r)
	})

	return strings.Trim(chain[start+1:], ". ")
}

// childCandidates returns the completions available under parent. The top
// level offers bound names, the receiver and the builtins.
func (m model) childCandidates(parent string) []string {
	ev := m.eval

	switch {
	case parent == "":
		names := ev.Names()
		names = append(names, isolate.ReceiverName)

		for _, fn := range builtin.Builtins {
			if !slices.Contains(names, fn.Name) {
				names = append(names, fn.Name)
			}
		}

		return names

	case parent == isolate.ReceiverName:
		return memberNames(ev.Receiver())

	case strings.HasPrefix(parent, isolate.ReceiverName+"."):
		path := strings.TrimPrefix(parent, isolate.ReceiverName+".")

		return memberNames(member(ev.Receiver(), strings.Split(path, ".")))
	}

	value, ok := ev.Bindings().Lookup(parent)
	if !ok {
		return nil
	}

	return memberNames(value)
}

// member walks v along path through string-keyed maps and struct fields.
func member(v any, path []string) any {
	for _, name := range path {
		rv := reflect.Indirect(reflect.ValueOf(v))

		switch rv.Kind() {
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil
			}

			elem := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			if !elem.IsValid() {
				return nil
			}

			v = elem.Interface()

		case reflect.Struct:
			field := rv.FieldByName(name)
			if !field.IsValid() || !field.CanInterface() {
				return nil
			}

			v = field.Interface()

		default:
			return nil
		}
	}

	return v
}

// memberNames returns the sorted keys of a string-keyed map or the exported
// fields of a struct.
func memberNames(v any) []string {
	rv := reflect.Indirect(reflect.ValueOf(v))

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}

		names := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			names = append(names, key.String())
		}

		slices.Sort(names)

		return names

	case reflect.Struct:
		var names []string

		for i := range rv.NumField() {
			if field := rv.Type().Field(i); field.IsExported() {
				names = append(names, field.Name)
			}
		}

		return names
	}

	return nil
}

// computeMatches ranks the candidates for the word at the cursor and
// records them in m. An empty word lists every child after a dot and
// nothing at the top level, leaving room for the hint line.
func (m *model) computeMatches() {
	input := m.input.Value()

	word, start, end := wordBounds(input, m.input.Position())

	m.matches, m.parent, m.wordStart, m.wordEnd = nil, "", start, end

	if m.mode == modeCtrl {
		if word != "" && !strings.ContainsRune(input[:start], ' ') {
			m.matches = fuzzy.Find(word, ctrlCommands)
		}

		return
	}

	m.parent = parentPath(input, start)
	candidates := m.childCandidates(m.parent)

	switch {
	case word != "":
		m.matches = fuzzy.Find(word, candidates)

	case m.parent != "":
		for i, c := range candidates {
			m.matches = append(m.matches, fuzzy.Match{Str: c, Index: i})
		}
	}
}

// isCallable reports whether the candidate name under the current parent
// path refers to a function.
func (m model) isCallable(name string) bool {
	if m.mode == modeCtrl {
		return false
	}

	path := name
	if m.parent != "" {
		path = m.parent + "." + name
	}

	if meta, ok := m.registry.Describe(path); ok {
		return meta.Kind == isolate.KindFunc ||
			meta.Kind == isolate.KindConstructor ||
			meta.Kind == isolate.KindNative
	}

	if m.parent != "" {
		return false
	}

	_, ok := builtin.Index[name]

	return ok
}

// renderCandidateBar renders matches on one line, truncated with an
// ellipsis to fit width.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	ellipsis := hintStyle.Render("...")
	room := m.width - lipgloss.Width(ellipsis)

	var b strings.Builder

	for i, match := range m.matches {
		rendered := m.renderCandidate(match, m.tabActive && i == m.suggIdx)

		if i > 0 {
			if lipgloss.Width(b.String()+sep+rendered) > room &&
				i < len(m.matches)-1 {
				b.WriteString(sep + ellipsis)

				break
			}

			b.WriteString(sep)
		}

		b.WriteString(rendered)
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched runes emphasized.
// Callables are suffixed with "()".
func (m model) renderCandidate(match fuzzy.Match, selected bool) string {
	base, emph := suggestionStyle, suggestionStyle.Bold(true)
	if selected {
		base, emph = selectedStyle, selectedStyle.Bold(true)
	}

	matched := make(map[int]struct{}, len(match.MatchedIndexes))
	for _, i := range match.MatchedIndexes {
		matched[i] = struct{}{}
	}

	var b strings.Builder

	for i, r := range match.Str {
		if _, ok := matched[i]; ok {
			b.WriteString(emph.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if m.isCallable(match.Str) {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// listing renders the registry's top-level names with their kinds.
func listing(r *isolate.Registry) string {
	names := r.Names()
	slices.Sort(names)

	lines := make([]string, 0, len(names))

	for _, name := range names {
		if meta, ok := r.Describe(name); ok {
			lines = append(lines, "  "+name+" "+hintStyle.Render(meta.Kind.String()))
		}
	}

	return strings.Join(lines, "\n")
}
