// Package types provides the domain models shared across rulebuilder components.
//
// The canonical condition tree (Node, Value, GroupOperator) and the field catalog
// definitions (Field, OperatorDef, Choice) live here so that the builder, the
// validator and the transport layers agree on one shape. Wire-format concerns
// beyond JSON (structpb conversion, SQL rows) stay at the package boundaries.
package types

import "encoding/json"

// GroupOperator is the boolean combinator of a group node.
// Any value other than AND, OR or NOT marks the node as a rule.
type GroupOperator string

const (
	GroupAnd GroupOperator = "AND"
	GroupOr  GroupOperator = "OR"
	GroupNot GroupOperator = "NOT"
)

// Valid reports whether op is one of the recognized combinators.
func (op GroupOperator) Valid() bool {
	switch op {
	case GroupAnd, GroupOr, GroupNot:
		return true
	default:
		return false
	}
}

// Node is one element of a condition tree: a group or a rule.
//
// A node is a group when GroupOperator is valid; ID, Quantity and Groups are
// only meaningful for groups. Otherwise it is a rule and Name, Operator and
// Value describe the comparison.
type Node struct {
	ID            *string
	Quantity      *int
	GroupOperator GroupOperator
	Groups        []Node

	Name     string
	Operator string
	Value    Value
}

// IsGroup reports whether the node is a group.
func (n Node) IsGroup() bool {
	return n.GroupOperator.Valid()
}

// NewGroup returns a group node over children.
func NewGroup(op GroupOperator, children ...Node) Node {
	if children == nil {
		children = []Node{}
	}
	return Node{GroupOperator: op, Groups: children}
}

// NewRule returns a rule node.
func NewRule(field, operator string, value Value) Node {
	return Node{Name: field, Operator: operator, Value: value}
}

// ruleWire is the serialized shape of a rule understood by the host pages.
// Ranged values travel as start/end; everything else as value.
type ruleWire struct {
	Name     string  `json:"name"`
	Operator string  `json:"operator"`
	Value    *string `json:"value"`
	Start    *string `json:"start,omitempty"`
	End      *string `json:"end,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.IsGroup() {
		op := string(n.GroupOperator)
		groups := n.Groups
		if groups == nil {
			groups = []Node{}
		}
		// groups always present, even when empty
		return json.Marshal(struct {
			ID            *string `json:"id"`
			Quantity      *int    `json:"quantity"`
			GroupOperator string  `json:"groupOperator"`
			Groups        []Node  `json:"groups"`
		}{n.ID, n.Quantity, op, groups})
	}

	w := ruleWire{Name: n.Name, Operator: n.Operator}
	switch n.Value.Kind {
	case ValueScalar:
		s := n.Value.Scalar
		w.Value = &s
	case ValueRange:
		start, end := n.Value.Start, n.Value.End
		w.Start, w.End = &start, &end
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
// Decoding is lenient; see DecodeNode.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	node, err := DecodeNode(raw)
	if err != nil {
		return err
	}
	*n = node
	return nil
}
