package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tree is a nested option tree as decoded from YAML.
type Tree map[string]any

// Lookup walks a dotted path. A nil leaf counts as unset.
func (t Tree) Lookup(path string) (any, bool) {
	var cur any = map[string]any(t)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Set writes value at a dotted path, creating intermediate maps.
func (t Tree) Set(path string, value any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(t)
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// Merge deep-merges src over t.
func (t Tree) Merge(src Tree) {
	for k, v := range src {
		sm, sok := asMap(v)
		dm, dok := asMap(t[k])
		if sok && dok {
			Tree(dm).Merge(Tree(sm))
			continue
		}
		t[k] = deepCopyValue(v)
	}
}

// DeepCopy returns an independent copy of the tree.
func (t Tree) DeepCopy() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case Tree:
		return vv.DeepCopy()
	case map[string]any:
		return map[string]any(Tree(vv).DeepCopy())
	case []any:
		out := make([]any, len(vv))
		for i := range vv {
			out[i] = deepCopyValue(vv[i])
		}
		return out
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	switch vv := v.(type) {
	case Tree:
		return vv, true
	case map[string]any:
		return vv, true
	default:
		return nil, false
	}
}

// toFloat converts a decoded option value to float64. The strings "inf" and "-inf"
// are accepted alongside YAML's .inf.
func toFloat(v any) (float64, error) {
	switch vv := v.(type) {
	case float64:
		return vv, nil
	case float32:
		return float64(vv), nil
	case int:
		return float64(vv), nil
	case int64:
		return float64(vv), nil
	case uint64:
		return float64(vv), nil
	case bool:
		if vv {
			return 0, fmt.Errorf("boolean true is not a number")
		}
		return 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "inf", "+inf", ".inf":
			return math.Inf(1), nil
		case "-inf", "-.inf":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(vv, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", vv)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch vv := v.(type) {
	case bool:
		return vv, nil
	case int:
		return vv != 0, nil
	case float64:
		return vv != 0, nil
	case string:
		b, err := strconv.ParseBool(vv)
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", vv)
		}
		return b, nil
	default:
		return false, fmt.Errorf("unsupported value type %T", v)
	}
}
