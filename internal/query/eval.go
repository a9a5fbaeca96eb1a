package query

import "strings"

// Matches reports whether target satisfies n. Terms match as case-insensitive substrings;
// an empty group matches everything.
func Matches(n Node, target string) bool {
	return matches(n, strings.ToLower(target))
}

func matches(n Node, lowered string) bool {
	switch v := n.(type) {
	case Term:
		return strings.Contains(lowered, strings.ToLower(string(v)))
	case *Group:
		switch v.Op {
		case And:
			return all(v.Children, lowered)
		case Or:
			for _, c := range v.Children {
				if matches(c, lowered) {
					return true
				}
			}
			return false
		case Not:
			return !all(v.Children, lowered)
		}
	}
	return true
}

func all(children []Node, lowered string) bool {
	for _, c := range children {
		if !matches(c, lowered) {
			return false
		}
	}
	return true
}

// Match parses q and evaluates it against target.
func Match(q, target string) bool {
	return Matches(Parse(q), target)
}

// Query is a parsed query that can be evaluated many times.
type Query struct {
	raw  string
	root Node
}

// Compile parses q once for repeated matching.
func Compile(q string) *Query {
	return &Query{raw: q, root: Parse(q)}
}

// Match reports whether target satisfies the query.
func (q *Query) Match(target string) bool {
	return Matches(q.root, target)
}

// Root returns the parsed tree.
func (q *Query) Root() Node { return q.root }

// Raw returns the original query text.
func (q *Query) Raw() string { return q.raw }

// String returns the canonical form of the query.
func (q *Query) String() string { return Format(q.root) }

// Terms returns the keywords of the query in order.
func (q *Query) Terms() []string { return Terms(q.root) }

// Filter returns the candidates matching q, in their original order.
func Filter(q *Query, candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if q.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
