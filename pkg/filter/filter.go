// Package filter selects hosts from an inventory.
//
// Predicates are trees of Expr nodes: leaves compare one host field against a value,
// branches combine children with AND, OR or NOT. Evaluation is a single pure function
// over the tree.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// ErrMalformedFilter is returned by Parse for paths that cannot be evaluated.
var ErrMalformedFilter = errors.New("malformed filter")

// Predicate decides whether a host belongs to a filtered view.
type Predicate interface {
	Match(host *types.Host) bool
}

// Operator is the comparison applied by a leaf.
type Operator string

const (
	OpEqual    Operator = "eq"
	OpContains Operator = "contains"
	OpAny      Operator = "any"
	OpAll      Operator = "all"
)

var operators = map[string]Operator{
	string(OpEqual):    OpEqual,
	string(OpContains): OpContains,
	string(OpAny):      OpAny,
	string(OpAll):      OpAll,
}

type kind int

const (
	kindLeaf kind = iota
	kindAnd
	kindOr
	kindNot
	kindFunc
)

// Expr is a node of a predicate tree.
type Expr struct {
	kind     kind
	path     []string
	op       Operator
	value    interface{}
	children []Predicate
	fn       func(*types.Host) bool
}

// Parse builds a leaf from a double-underscore path such as "nested_data__a_list__contains".
// A trailing operator segment selects the comparison; equality is the default.
func Parse(path string, value interface{}) (*Expr, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty field path", ErrMalformedFilter)
	}
	segments := strings.Split(path, "__")
	op := OpEqual
	if len(segments) > 1 {
		if o, ok := operators[segments[len(segments)-1]]; ok {
			op = o
			segments = segments[:len(segments)-1]
		}
	}
	for _, s := range segments {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrMalformedFilter, path)
		}
	}
	if op == OpAny || op == OpAll {
		if _, ok := common.InterfaceToSlice(value); !ok {
			return nil, fmt.Errorf("%w: %s expects a list value in %q", ErrMalformedFilter, op, path)
		}
	}
	return &Expr{kind: kindLeaf, path: segments, op: op, value: value}, nil
}

// F is like Parse but panics on a malformed path.
func F(path string, value interface{}) *Expr {
	e, err := Parse(path, value)
	if err != nil {
		panic(err)
	}
	return e
}

// And matches hosts matched by every child. An empty And matches everything.
func And(children ...Predicate) *Expr {
	return &Expr{kind: kindAnd, children: children}
}

// Or matches hosts matched by at least one child.
func Or(children ...Predicate) *Expr {
	return &Expr{kind: kindOr, children: children}
}

// Not inverts child.
func Not(child Predicate) *Expr {
	return &Expr{kind: kindNot, children: []Predicate{child}}
}

// Func wraps an arbitrary host predicate.
func Func(fn func(*types.Host) bool) *Expr {
	return &Expr{kind: kindFunc, fn: fn}
}

// Attrs matches hosts whose fields equal every given value.
func Attrs(kv map[string]interface{}) *Expr {
	children := make([]Predicate, 0, len(kv))
	for k, v := range kv {
		children = append(children, &Expr{kind: kindLeaf, path: []string{k}, op: OpEqual, value: v})
	}
	return And(children...)
}

// And returns e AND others, for chaining.
func (e *Expr) And(others ...Predicate) *Expr {
	return And(append([]Predicate{e}, others...)...)
}

// Or returns e OR others, for chaining.
func (e *Expr) Or(others ...Predicate) *Expr {
	return Or(append([]Predicate{e}, others...)...)
}

// Not returns NOT e.
func (e *Expr) Not() *Expr {
	return Not(e)
}

func (e *Expr) Match(host *types.Host) bool {
	return evaluate(e, host)
}

func (e *Expr) String() string {
	switch e.kind {
	case kindLeaf:
		return fmt.Sprintf("%s %s %v", strings.Join(e.path, "."), e.op, e.value)
	case kindAnd, kindOr:
		sep := " AND "
		if e.kind == kindOr {
			sep = " OR "
		}
		parts := make([]string, len(e.children))
		for i, c := range e.children {
			parts[i] = fmt.Sprintf("%v", c)
		}
		return "(" + strings.Join(parts, sep) + ")"
	case kindNot:
		return fmt.Sprintf("NOT %v", e.children[0])
	}
	return "func"
}

func evaluate(p Predicate, host *types.Host) bool {
	e, ok := p.(*Expr)
	if !ok {
		return p.Match(host)
	}
	switch e.kind {
	case kindLeaf:
		return evaluateLeaf(e, host)
	case kindAnd:
		for _, c := range e.children {
			if !evaluate(c, host) {
				return false
			}
		}
		return true
	case kindOr:
		for _, c := range e.children {
			if evaluate(c, host) {
				return true
			}
		}
		return false
	case kindNot:
		return !evaluate(e.children[0], host)
	case kindFunc:
		return e.fn(host)
	}
	return false
}

func evaluateLeaf(e *Expr, host *types.Host) bool {
	data, ok := field(host, e.path[0])
	if !ok {
		return false
	}
	for _, segment := range e.path[1:] {
		m, ok := common.InterfaceToMap(data)
		if !ok {
			return false
		}
		if data, ok = m[segment]; !ok {
			return false
		}
	}
	return compare(e.op, data, e.value)
}

// field resolves host attributes first, then inherited data.
func field(host *types.Host, name string) (interface{}, bool) {
	switch name {
	case "name":
		return host.Name, true
	case "hostname":
		return host.ResolvedHostname(), true
	case "platform":
		return host.ResolvedPlatform(), true
	case "username":
		return host.ResolvedUsername(), true
	case "port":
		return host.ResolvedPort(), true
	case "groups":
		return host.GroupNames, true
	}
	v, err := host.Get(name)
	if err != nil {
		return nil, false
	}
	return v, true
}

func compare(op Operator, data, value interface{}) bool {
	switch op {
	case OpEqual:
		return common.ValuesEqual(data, value)
	case OpContains:
		return contains(data, value)
	case OpAny, OpAll:
		values, _ := common.InterfaceToSlice(value)
		for _, v := range values {
			found := contains(data, v)
			if op == OpAny && found {
				return true
			}
			if op == OpAll && !found {
				return false
			}
		}
		return op == OpAll
	}
	return false
}

func contains(data, value interface{}) bool {
	if s, ok := data.(string); ok {
		sub, ok := value.(string)
		return ok && strings.Contains(s, sub)
	}
	if items, ok := common.InterfaceToSlice(data); ok {
		for _, item := range items {
			if common.ValuesEqual(item, value) {
				return true
			}
		}
		return false
	}
	if m, ok := common.InterfaceToMap(data); ok {
		_, found := m[fmt.Sprintf("%v", value)]
		return found
	}
	return false
}
