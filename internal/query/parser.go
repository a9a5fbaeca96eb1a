package query

import (
	"strings"
)

// isSeparator reports whether c ends a keyword. Every separator is ASCII, so bytes of
// multi-byte UTF-8 sequences always belong to a keyword.
func isSeparator(c byte) bool {
	switch c {
	case ',', ';', '.', ':', '-', '_', '\'', '/', '!', ' ', '(', ')':
		return true
	}
	return false
}

// Parse turns q into a query tree. It never fails: unbalanced parentheses, dangling
// operators and empty input all yield a (possibly empty) AND group.
func Parse(q string) Node {
	root, _ := parseGroup(q)
	return root
}

// parseGroup scans q until a closing parenthesis or the end of input and returns the group
// built so far together with the unconsumed remainder.
func parseGroup(q string) (*Group, string) {
	negate := false
	current := &Group{Op: And}

	for len(q) > 0 {
		if q[0] == ')' {
			return current, q[1:]
		}

		if q[0] == '(' {
			nested, rest := parseGroup(strings.TrimSpace(q[1:]))
			current.Children = append(current.Children, nested)
			q = rest
			continue
		}

		trimmed := strings.TrimSpace(q)
		switch {
		case strings.HasPrefix(trimmed, "NOT"):
			negate = true
			q = strings.TrimSpace(trimmed[len("NOT"):])
			continue
		case strings.HasPrefix(trimmed, "OR"):
			current = rebind(current, Or)
			q = strings.TrimSpace(trimmed[len("OR"):])
			continue
		case strings.HasPrefix(trimmed, "AND"):
			current = rebind(current, And)
			q = strings.TrimSpace(trimmed[len("AND"):])
			continue
		}

		end := 0
		for end < len(q) && !isSeparator(q[end]) {
			end++
		}
		if end > 0 {
			var child Node = Term(q[:end])
			if negate {
				child = &Group{Op: Not, Children: []Node{child}}
				negate = false
			}
			current.Children = append(current.Children, child)
			q = q[end:]
			continue
		}

		// A bare separator is an implicit AND boundary.
		if current.Op != And && len(current.Children) > 1 {
			current = &Group{Op: And, Children: []Node{current}}
		}
		q = q[1:]
	}

	return current, ""
}

// rebind switches the accumulating group to op. A group holding several children becomes
// the sole child of the new group; a lone child is moved up directly.
func rebind(current *Group, op Operator) *Group {
	if current.Op == op {
		return current
	}
	switch len(current.Children) {
	case 0:
		return &Group{Op: op}
	case 1:
		return &Group{Op: op, Children: []Node{current.Children[0]}}
	default:
		return &Group{Op: op, Children: []Node{current}}
	}
}
