// Package query implements the boolean search language used to filter result names.
//
// A query is a free-text string such as "(foo OR bar) AND NOT baz" or "foo.bar". Keywords
// are matched as case-insensitive substrings; separators between keywords act as an
// implicit AND. Parsing never fails: malformed input degrades to the best tree the
// scanner could build.
package query

import (
	"encoding/json"
	"strings"
)

// Operator combines the children of a Group.
type Operator string

const (
	And Operator = "AND"
	Or  Operator = "OR"
	Not Operator = "NOT"
)

// Node is a query tree node: either a Term or a *Group.
type Node interface {
	node()
}

// Term is a leaf keyword.
type Term string

func (Term) node() {}

// Group combines its children with Op. A NOT group is true unless every child matches.
type Group struct {
	Op       Operator
	Children []Node
}

func (*Group) node() {}

// MarshalJSON encodes g as {"type": op, "nodes": [...]}, terms being plain strings.
func (g *Group) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(struct {
		Op       Operator `json:"type"`
		Children []Node   `json:"nodes"`
	}{g.Op, children})
}

// Format renders n in canonical form, e.g. "(a AND b) OR c".
func Format(n Node) string {
	var b strings.Builder
	format(&b, n, true)
	return b.String()
}

func format(b *strings.Builder, n Node, top bool) {
	switch v := n.(type) {
	case Term:
		b.WriteString(string(v))
	case *Group:
		if v.Op == Not {
			b.WriteString("NOT ")
			if len(v.Children) == 1 {
				format(b, v.Children[0], false)
				return
			}
			b.WriteString("(")
			formatChildren(b, v.Children, And)
			b.WriteString(")")
			return
		}
		if len(v.Children) == 1 {
			format(b, v.Children[0], top)
			return
		}
		if !top {
			b.WriteString("(")
		}
		formatChildren(b, v.Children, v.Op)
		if !top {
			b.WriteString(")")
		}
	}
}

func formatChildren(b *strings.Builder, children []Node, op Operator) {
	for i, c := range children {
		if i > 0 {
			b.WriteString(" ")
			b.WriteString(string(op))
			b.WriteString(" ")
		}
		format(b, c, false)
	}
}

// Terms returns every keyword in n in left-to-right order, negated ones included.
func Terms(n Node) []string {
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Term:
			out = append(out, string(v))
		case *Group:
			for _, c := range v.Children {
				walk(c)
			}
		}
	}
	walk(n)
	return out
}
