// Package resolver walks a JSONPath-like expression over decoded JSON
// values. Resolution is total: any miss (absent property, out-of-range
// index, shape mismatch, malformed path) yields nil, never a panic.
package resolver

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenField tokenKind = iota
	tokenIndex
	tokenStar
)

type token struct {
	kind  tokenKind
	name  string
	index int
}

// Resolve evaluates path against root. "$" alone returns root and a
// leading "$." is stripped. Dot-separated segments descend into object
// properties, "[N]" indexes arrays and "[*]" projects the remainder of
// the path over every element, preserving array length (elements that
// miss the projected property resolve to nil).
func Resolve(root interface{}, path string) interface{} {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if path == "$" {
		return root
	}
	path = strings.TrimPrefix(path, "$.")

	tokens, ok := tokenize(path)
	if !ok {
		return nil
	}
	return walk(root, tokens)
}

func walk(current interface{}, tokens []token) interface{} {
	for i, tok := range tokens {
		switch tok.kind {
		case tokenField:
			obj, isObj := current.(map[string]interface{})
			if !isObj {
				return nil
			}
			current = obj[tok.name]

		case tokenIndex:
			arr, isArr := current.([]interface{})
			if !isArr || tok.index < 0 || tok.index >= len(arr) {
				return nil
			}
			current = arr[tok.index]

		case tokenStar:
			arr, isArr := current.([]interface{})
			if !isArr {
				return nil
			}
			rest := tokens[i+1:]
			projected := make([]interface{}, len(arr))
			for j, element := range arr {
				projected[j] = walk(element, rest)
			}
			return projected
		}
	}
	return current
}

// tokenize splits "a.b[0].c[*]" into field/index/star tokens. A segment
// may carry any number of trailing bracket operators.
func tokenize(path string) ([]token, bool) {
	var tokens []token
	for _, segment := range strings.Split(path, ".") {
		name := segment
		brackets := ""
		if open := strings.IndexByte(segment, '['); open >= 0 {
			name = segment[:open]
			brackets = segment[open:]
		}
		if name != "" {
			tokens = append(tokens, token{kind: tokenField, name: name})
		} else if brackets == "" {
			// empty segment, e.g. "a..b"
			return nil, false
		}

		for brackets != "" {
			if brackets[0] != '[' {
				return nil, false
			}
			close := strings.IndexByte(brackets, ']')
			if close < 0 {
				return nil, false
			}
			inner := brackets[1:close]
			brackets = brackets[close+1:]

			if inner == "*" {
				tokens = append(tokens, token{kind: tokenStar})
				continue
			}
			n, err := strconv.Atoi(inner)
			if err != nil {
				return nil, false
			}
			tokens = append(tokens, token{kind: tokenIndex, index: n})
		}
	}
	return tokens, true
}
