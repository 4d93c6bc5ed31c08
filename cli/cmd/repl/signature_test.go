package repl

import (
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestDetectFunctionCall(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		cursor     int
		wantName   string
		wantIndex  int
		wantInCall bool
	}{
		{"no_call", "greeting", 8, "", 0, false},
		{"first_arg_empty", "add(", 4, "add", 0, true},
		{"first_arg", "add(1", 5, "add", 0, true},
		{"second_arg_empty", "add(1,", 6, "add", 1, true},
		{"second_arg", "add(1, 2", 8, "add", 1, true},
		{"nested_path", "math.add(1, ", 12, "math.add", 1, true},
		{"closed_call", "add(1, 2) + ", 12, "", 0, false},
		{"inner_call", "add(double(3", 12, "double", 0, true},
		{"after_inner_call", "add(double(3), ", 15, "add", 1, true},
		{"comma_in_string", `join("a,b", `, 11, "join", 1, true},
		{"paren_in_string", `upper("(x", `, 11, "upper", 1, true},
		{"comma_in_array", "sum([1, 2, ", 11, "sum", 0, true},
		{"comma_in_map", "f({a: 1, b: 2}, ", 16, "f", 1, true},
		{"grouping_paren", "(1 + ", 5, "", 0, false},
		{"constructor", "new Player(n, ", 14, "Player", 1, true},
		{"cursor_before_call", "add(1, 2)", 3, "", 0, false},
		{"receiver_method", "this.fmt(", 9, "this.fmt", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFunctionCall(tt.input, tt.cursor)
			if got.name != tt.wantName ||
				got.argIndex != tt.wantIndex ||
				got.inCall != tt.wantInCall {
				t.Errorf("detectFunctionCall(%q, %d) = %+v, want {%s %d %v}",
					tt.input, tt.cursor, got,
					tt.wantName, tt.wantIndex, tt.wantInCall)
			}
		})
	}
}

func TestSignatureOf(t *testing.T) {
	m := testModel(t, nil)

	tests := []struct {
		name   string
		want   []string
		wantOK bool
	}{
		{"math.add", []string{"int", "int"}, true},
		{"upper", []string{"...args"}, true},
		{"Account", []string{"...args"}, true},
		{"filter", []string{"array", "predicate"}, true},
		{"greeting", nil, false},
		{"server", nil, false},
		{"nowhere", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := signatureOf(m.registry, m.eval.Bindings(), tt.name)
			if ok != tt.wantOK || !slices.Equal(got, tt.want) {
				t.Errorf("signatureOf(%q) = (%v, %v), want (%v, %v)",
					tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNativeParams(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want []string
	}{
		{"none", func() {}, []string{}},
		{"scalars", func(string, int64, float32, bool) {}, []string{"string", "int", "float", "bool"}},
		{"variadic", func(string, ...int) {}, []string{"string", "...int"}},
		{"composite", func([]int, map[string]any, *int, any) {}, []string{"slice", "map", "int", "any"}},
		{"named", func(reflect.Kind) {}, []string{"uint"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nativeParams(reflect.TypeOf(tt.fn))
			if !slices.Equal(got, tt.want) {
				t.Errorf("nativeParams = %v, want %v", got, tt.want)
			}
		})
	}

	if got := nativeParams(reflect.TypeOf(42)); got != nil {
		t.Errorf("nativeParams(int) = %v, want nil", got)
	}
}

func TestRenderSignatureHint(t *testing.T) {
	plain := func(s string) string { return signatureStyle.Render(s) }
	current := func(s string) string { return currentParamStyle.Render(s) }

	tests := []struct {
		name     string
		params   []string
		argIndex int
		contains string
	}{
		{"first", []string{"a", "b"}, 0, current("a") + plain(", ") + plain("b")},
		{"second", []string{"a", "b"}, 1, plain("a") + plain(", ") + current("b")},
		{"variadic_tail", []string{"a", "...rest"}, 3, current("...rest")},
		{"past_end", []string{"a"}, 2, plain("a") + plain(")")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderSignatureHint("f", tt.params, tt.argIndex)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("renderSignatureHint(%v, %d) = %q, want it to contain %q",
					tt.params, tt.argIndex, got, tt.contains)
			}
		})
	}
}
