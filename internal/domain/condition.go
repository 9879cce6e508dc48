package domain

import (
	"fmt"
	"strings"
)

// ConditionOp enumerates leaf predicate operators.
type ConditionOp string

const (
	OpEquals    ConditionOp = "eq"
	OpNotEquals ConditionOp = "ne"
	OpIn        ConditionOp = "in"
	OpExists    ConditionOp = "exists"
)

// Condition is a tagged predicate tree over an event context. A node is either
// a composite (All/Any) or a leaf (Field/Op/Value). The zero value matches
// everything.
type Condition struct {
	All []Condition `json:"all,omitempty"`
	Any []Condition `json:"any,omitempty"`

	Field  string      `json:"field,omitempty"`
	Op     ConditionOp `json:"op,omitempty"`
	Value  string      `json:"value,omitempty"`
	Values []string    `json:"values,omitempty"`
}

// IsEmpty reports whether the condition places no constraint on the context.
func (c Condition) IsEmpty() bool {
	return len(c.All) == 0 && len(c.Any) == 0 && c.Field == ""
}

// Evaluate walks the tree against the given context. Unknown operators and
// malformed nodes return an error so the caller can isolate the failing rule.
func (c Condition) Evaluate(ctx map[string]any) (bool, error) {
	if c.IsEmpty() {
		return true, nil
	}

	if len(c.All) > 0 {
		for _, child := range c.All {
			ok, err := child.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}

	if len(c.Any) > 0 {
		for _, child := range c.Any {
			ok, err := child.Evaluate(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	return c.evaluateLeaf(ctx)
}

func (c Condition) evaluateLeaf(ctx map[string]any) (bool, error) {
	if c.Field == "" {
		return false, fmt.Errorf("condition leaf missing field")
	}

	val, present := LookupPath(ctx, c.Field)

	switch c.Op {
	case OpExists:
		return present, nil
	case OpEquals:
		return present && stringify(val) == c.Value, nil
	case OpNotEquals:
		return !present || stringify(val) != c.Value, nil
	case OpIn:
		if len(c.Values) == 0 {
			return false, fmt.Errorf("condition %q: op \"in\" requires values", c.Field)
		}
		if !present {
			return false, nil
		}
		needle := stringify(val)
		for _, candidate := range c.Values {
			if strings.EqualFold(candidate, needle) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("condition %q: unknown operator %q", c.Field, c.Op)
	}
}

// LookupPath resolves a dotted path ("ticket.priority") against nested maps.
func LookupPath(bindings map[string]any, path string) (any, bool) {
	if bindings == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")
	var current any = bindings
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
