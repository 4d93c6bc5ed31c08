package isolate

import (
	"log/slog"
	"reflect"
	"strconv"

	"github.com/expr-lang/expr/ast"

	"github.com/ardnew/isolate/log"
)

// indexPatcher rewrites numeric member access into object bindings
// (a[0]) as string-keyed access (a["0"]). Paths registered with numeric
// bracket segments are stored under decimal string keys, which the
// expression language would otherwise refuse to index with an integer.
type indexPatcher struct {
	env    map[string]any
	logger log.Logger
}

// Visit implements ast.Visitor. Children are visited first, so the base of a
// chain such as a[0][1] has already been patched when its parent is seen.
func (p *indexPatcher) Visit(node *ast.Node) {
	member, ok := (*node).(*ast.MemberNode)
	if !ok {
		return
	}

	index, ok := member.Property.(*ast.IntegerNode)
	if !ok || index.Value < 0 {
		return
	}

	if !p.isObject(member.Node) {
		return
	}

	key := strconv.Itoa(index.Value)

	ast.Patch(node, &ast.MemberNode{
		Node:     member.Node,
		Property: &ast.StringNode{Value: key},
		Optional: member.Optional,
		Method:   member.Method,
	})

	p.logger.Trace("patch index",
		slog.String("key", key),
	)
}

// isObject reports whether node evaluates to a string-keyed map, either by
// its checked type or by resolving it statically against the environment.
func (p *indexPatcher) isObject(node ast.Node) bool {
	if t := node.Type(); t != nil && t.Kind() == reflect.Map &&
		t.Key().Kind() == reflect.String {
		return true
	}

	path, ok := memberPath(node)
	if !ok {
		return false
	}

	value, ok := Bindings(p.env).lookup(Path{Root: path[0], Segments: path[1:]})
	if !ok {
		return false
	}

	_, isObj := value.(map[string]any)

	return isObj
}

// memberPath walks an identifier or a chain of string-keyed member nodes
// and returns its segments.
func memberPath(node ast.Node) ([]string, bool) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		return []string{n.Value}, true

	case *ast.MemberNode:
		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return nil, false
		}

		base, ok := memberPath(n.Node)
		if !ok {
			return nil, false
		}

		return append(base, prop.Value), true

	default:
		return nil, false
	}
}
