package engine

import "strings"

// Request describes one await-bearing snippet prepared for execution
// as a task. Classification is a lexical scan, not a parse: a wrong
// guess is absorbed by the evaluator's own fallback behavior.
type Request struct {
	Source string

	// DeclaredName is set when the snippet is a bare import or a
	// simple `name = expr` assignment. The evaluator globalizes that
	// name before running the wrapped body, preserving the illusion
	// that top-level code runs in the caller's namespace.
	DeclaredName string

	// WrapReturn is set when the snippet contains no assignment at
	// all; the evaluator wraps it as `return <snippet>` so the value
	// is observable.
	WrapReturn bool
}

// Classify builds the execution request for an await-bearing snippet.
// Precedence: import name, then simple assignment, then return
// wrapping. A snippet that both assigns and ends in an expression
// takes the assignment path; client tooling depends on this order.
func Classify(src string) Request {
	req := Request{Source: src}

	if name := importName(src); name != "" {
		req.DeclaredName = name
		return req
	}
	if name := globalAssign(src); name != "" {
		req.DeclaredName = name
		return req
	}
	if !hasAssignment(src) {
		req.WrapReturn = true
	}
	return req
}

// importName returns the bound name of a bare import statement, or "".
// Handles `import X [as Y]` and `from X import Y [as Z]`.
func importName(code string) string {
	if strings.HasPrefix(code, "import ") {
		parts := strings.Fields(code)
		if len(parts) >= 4 && parts[2] == "as" {
			return parts[3]
		}
		if len(parts) >= 2 {
			return parts[1]
		}
		return ""
	}

	if strings.HasPrefix(code, "from ") {
		parts := strings.Fields(code)
		idx := -1
		for i, p := range parts {
			if p == "import" {
				idx = i + 1
				break
			}
		}
		if idx < 0 || idx >= len(parts) {
			return ""
		}
		if len(parts) > idx+2 && parts[idx+1] == "as" {
			return parts[idx+2]
		}
		return parts[idx]
	}

	return ""
}

// globalAssign returns the target of a simple `name = expr` assignment
// (single =, left side a lone identifier), or "".
func globalAssign(code string) string {
	eq := strings.IndexByte(code, '=')
	if eq <= 0 {
		return ""
	}
	if eq+1 < len(code) && code[eq+1] == '=' {
		return ""
	}
	name := strings.TrimRight(code[:eq], " \t")
	if !isIdentifier(name) {
		return ""
	}
	return name
}

// hasAssignment reports whether code contains any = that is not part
// of ==, !=, <=, or >=.
func hasAssignment(code string) bool {
	for i := 0; i < len(code); i++ {
		if code[i] != '=' {
			continue
		}
		if i > 0 && strings.IndexByte("!<>=", code[i-1]) >= 0 {
			continue
		}
		if i+1 < len(code) && code[i+1] == '=' {
			continue
		}
		return true
	}
	return false
}

// isIdentifier reports whether s is a valid identifier: letters or
// underscores, with digits allowed after the first character.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_',
			c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
