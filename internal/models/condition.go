package models

import (
	"encoding/json"
	"fmt"
)

// Comparison operators accepted inside complex_conditions
const (
	OpGreaterThan  = ">"
	OpLessThan     = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpEqual        = "=="
	OpNotEqual     = "!="
)

// ConditionNode is one node of the complex_conditions boolean AST. Exactly one
// variant is set per node: Comparison (Op+Value), Range (Min+Max), And, or Or.
//
// Wire format examples:
//
//	{"op": ">", "value": 70}
//	{"min": 18, "max": 26}
//	{"and": [{"op": ">", "value": 18}, {"op": "<", "value": 26}]}
type ConditionNode struct {
	Op    string          `json:"op,omitempty"`
	Value *float64        `json:"value,omitempty"`
	Min   *float64        `json:"min,omitempty"`
	Max   *float64        `json:"max,omitempty"`
	And   []ConditionNode `json:"and,omitempty"`
	Or    []ConditionNode `json:"or,omitempty"`
}

// ParseConditionTree parses and validates a complex_conditions document.
// Invalid documents are rejected here, at save time, so evaluation never sees
// a malformed tree.
func ParseConditionTree(raw []byte) (*ConditionNode, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("complex_conditions is empty")
	}

	var node ConditionNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("invalid complex_conditions json: %w", err)
	}

	if err := node.validate(); err != nil {
		return nil, err
	}
	return &node, nil
}

func (n *ConditionNode) validate() error {
	variants := 0
	if n.Op != "" || n.Value != nil {
		variants++
	}
	if n.Min != nil || n.Max != nil {
		variants++
	}
	if n.And != nil {
		variants++
	}
	if n.Or != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("condition node must be exactly one of comparison, range, and, or")
	}

	switch {
	case n.Op != "" || n.Value != nil:
		if n.Value == nil {
			return fmt.Errorf("comparison node %q is missing a value", n.Op)
		}
		switch n.Op {
		case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual:
		default:
			return fmt.Errorf("unknown comparison operator %q", n.Op)
		}

	case n.Min != nil || n.Max != nil:
		if n.Min == nil || n.Max == nil {
			return fmt.Errorf("range node requires both min and max")
		}
		if *n.Min > *n.Max {
			return fmt.Errorf("range node min %v exceeds max %v", *n.Min, *n.Max)
		}

	case n.And != nil:
		if len(n.And) == 0 {
			return fmt.Errorf("and node requires at least one child")
		}
		for i := range n.And {
			if err := n.And[i].validate(); err != nil {
				return err
			}
		}

	case n.Or != nil:
		if len(n.Or) == 0 {
			return fmt.Errorf("or node requires at least one child")
		}
		for i := range n.Or {
			if err := n.Or[i].validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Matches walks the tree against a reading value. The tree is assumed valid;
// ParseConditionTree is the only constructor.
func (n *ConditionNode) Matches(value float64) bool {
	switch {
	case n.And != nil:
		for i := range n.And {
			if !n.And[i].Matches(value) {
				return false
			}
		}
		return true

	case n.Or != nil:
		for i := range n.Or {
			if n.Or[i].Matches(value) {
				return true
			}
		}
		return false

	case n.Min != nil:
		// Range is inclusive on both bounds.
		return value >= *n.Min && value <= *n.Max

	default:
		switch n.Op {
		case OpGreaterThan:
			return value > *n.Value
		case OpLessThan:
			return value < *n.Value
		case OpGreaterEqual:
			return value >= *n.Value
		case OpLessEqual:
			return value <= *n.Value
		case OpEqual:
			return value == *n.Value
		case OpNotEqual:
			return value != *n.Value
		}
	}
	return false
}
