package repl

import (
	"reflect"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr/builtin"

	"github.com/ardnew/isolate/isolate"
)

// builtinParams names the parameters of the expression language's most
// common builtins. Other builtins are shown as variadic.
var builtinParams = map[string][]string{
	"len":       {"v"},
	"all":       {"array", "predicate"},
	"any":       {"array", "predicate"},
	"one":       {"array", "predicate"},
	"none":      {"array", "predicate"},
	"map":       {"array", "mapper"},
	"filter":    {"array", "predicate"},
	"find":      {"array", "predicate"},
	"findIndex": {"array", "predicate"},
	"groupBy":   {"array", "mapper"},
	"sortBy":    {"array", "mapper", "order"},
	"count":     {"array", "predicate"},
	"sum":       {"array"},
	"mean":      {"array"},
	"median":    {"array"},
	"min":       {"...values"},
	"max":       {"...values"},
	"join":      {"array", "separator"},
	"split":     {"string", "separator"},
	"replace":   {"string", "old", "new"},
	"trim":      {"string"},
	"upper":     {"string"},
	"lower":     {"string"},
	"int":       {"v"},
	"float":     {"v"},
	"string":    {"v"},
	"type":      {"v"},
	"keys":      {"map"},
	"values":    {"map"},
}

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall is the innermost call enclosing the cursor.
type functionCall struct {
	name     string // callee path, e.g. "math.add"
	argIndex int    // 0-based index of the argument under the cursor
	inCall   bool
}

// detectFunctionCall reports the innermost function call whose argument
// list contains cursor. String literals are skipped, and commas inside
// nested brackets do not advance the argument index.
func detectFunctionCall(input string, cursor int) functionCall {
	cursor = min(max(cursor, 0), len(input))

	type frame struct {
		open int
		args int
		call bool
	}

	var (
		stack []frame
		quote byte
	)

	for i := 0; i < cursor; i++ {
		c := input[i]

		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}

			continue
		}

		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			stack = append(stack, frame{open: i, call: c == '('})
		case ')', ']', '}':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].args++
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]
		if !f.call {
			continue
		}

		start := f.open
		for start > 0 && isPathByte(input[start-1]) {
			start--
		}

		name := strings.Trim(input[start:f.open], ".")
		if name == "" {
			return functionCall{}
		}

		return functionCall{name: name, argIndex: f.args, inCall: true}
	}

	return functionCall{}
}

func isPathByte(c byte) bool {
	return c == '.' || c == '_' || c == '$' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// signatureOf returns the parameter names of the callable name refers to.
// Bound functions take precedence over builtins of the same name.
func signatureOf(
	r *isolate.Registry,
	b isolate.Bindings,
	name string,
) ([]string, bool) {
	if meta, ok := r.Describe(name); ok {
		switch meta.Kind {
		case isolate.KindFunc, isolate.KindConstructor:
			return []string{"...args"}, true

		case isolate.KindNative:
			fn, _ := b.Lookup(name)

			return nativeParams(reflect.TypeOf(fn)), true

		default:
			return nil, false
		}
	}

	if params, ok := builtinParams[name]; ok {
		return params, true
	}

	if _, ok := builtin.Index[name]; ok {
		return []string{"...args"}, true
	}

	return nil, false
}

// nativeParams describes the parameters of a Go function type by kind.
func nativeParams(t reflect.Type) []string {
	if t == nil || t.Kind() != reflect.Func {
		return nil
	}

	params := make([]string, t.NumIn())

	for i := range params {
		in := t.In(i)

		if t.IsVariadic() && i == len(params)-1 {
			params[i] = "..." + typeLabel(in.Elem())

			continue
		}

		params[i] = typeLabel(in)
	}

	return params
}

func typeLabel(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Interface:
		return "any"
	case reflect.Pointer:
		return typeLabel(t.Elem())
	case reflect.Slice, reflect.Map, reflect.Func:
		return t.Kind().String()
	}

	if t.Name() != "" {
		return t.Name()
	}

	return "arg"
}

// renderSignatureHint renders name(params...) with the parameter at argIndex
// highlighted. A variadic parameter stays highlighted for every later
// argument.
func renderSignatureHint(name string, params []string, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		variadic := strings.HasPrefix(param, "...")

		if argIndex == i || (variadic && argIndex > i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
