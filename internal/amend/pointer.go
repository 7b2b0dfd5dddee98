package amend

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePointer validates and tokenizes an RFC 6901 JSON pointer. Only the
// two standard escapes are legal: ~0 -> ~, ~1 -> /. Anything else
// (e.g. "~2") is a malformed pointer and refused.
func parsePointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("pointer %q must start with '/'", path)
	}
	raw := strings.Split(path[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		if strings.Contains(t, "~") {
			for j := 0; j < len(t); j++ {
				if t[j] == '~' {
					if j+1 >= len(t) || (t[j+1] != '0' && t[j+1] != '1') {
						return nil, fmt.Errorf("pointer %q has an invalid '~' escape", path)
					}
				}
			}
		}
		t = strings.ReplaceAll(t, "~1", "/")
		t = strings.ReplaceAll(t, "~0", "~")
		tokens[i] = t
	}
	return tokens, nil
}

// getPointer resolves tokens against root, returning the value found and
// whether the whole path resolved.
func getPointer(root any, tokens []string) (any, bool) {
	cur := root
	for _, tok := range tokens {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[tok]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setPointer writes value at tokens within root, creating nothing along the
// way (every intermediate container must already exist). Returns the prior
// value and whether the set succeeded.
func setPointer(root any, tokens []string, value any) (prior any, ok bool) {
	if len(tokens) == 0 {
		return nil, false
	}
	cur := root
	for _, tok := range tokens[:len(tokens)-1] {
		switch c := cur.(type) {
		case map[string]any:
			next, exists := c[tok]
			if !exists {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	last := tokens[len(tokens)-1]
	switch c := cur.(type) {
	case map[string]any:
		prior = c[last]
		c[last] = value
		return prior, true
	case []any:
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		prior = c[idx]
		c[idx] = value
		return prior, true
	default:
		return nil, false
	}
}

// deepCopyJSON clones a JSON-decoded value tree so Apply can mutate a
// private copy of the input IR document without aliasing the caller's maps.
func deepCopyJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopyJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopyJSON(val)
		}
		return out
	default:
		return v
	}
}
