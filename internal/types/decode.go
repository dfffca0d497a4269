package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

/*
 * Lenient decoding of serialized condition trees.
 *
 * Trees come from browser forms and older stored documents, so field types are
 * loose: quantity may be 2 or "2", booleans may be true or "true", ranged values
 * may carry the literal string "null" for a missing bound. Decoding never fails
 * on a malformed field; the field degrades to absent instead:
 *
 *   - quantity: positive integer or absent
 *   - id: non-empty string or absent
 *   - groupOperator: AND/OR/NOT, anything else makes the node a rule
 *   - start/end: both non-empty and not "null" to form a range
 *
 * Only a node that is not an object at all is an error.
 */

// looseNode receives one decoded object before normalization.
type looseNode struct {
	ID            any   `mapstructure:"id"`
	Quantity      any   `mapstructure:"quantity"`
	GroupOperator any   `mapstructure:"groupOperator"`
	Groups        []any `mapstructure:"groups"`
	Name          any   `mapstructure:"name"`
	Operator      any   `mapstructure:"operator"`
	Value         any   `mapstructure:"value"`
	Start         any   `mapstructure:"start"`
	End           any   `mapstructure:"end"`
}

// nullSentinel is the placeholder older pages write for an unset range bound.
const nullSentinel = "null"

// DecodeNodes decodes a serialized tree. raw may be a list of nodes, a single
// node object, or the {"data": [...]} wrapper produced by Collect.
// Elements that are not objects are skipped.
func DecodeNodes(raw any) ([]Node, error) {
	switch v := raw.(type) {
	case nil:
		return []Node{}, nil
	case []any:
		nodes := make([]Node, 0, len(v))
		for _, elem := range v {
			n, err := DecodeNode(elem)
			if err != nil {
				continue
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	case map[string]any:
		if data, ok := v["data"]; ok {
			return DecodeNodes(data)
		}
		n, err := DecodeNode(v)
		if err != nil {
			return nil, err
		}
		return []Node{n}, nil
	default:
		return nil, fmt.Errorf("decode condition tree: unexpected %T", raw)
	}
}

// ParseNodes decodes a JSON document with DecodeNodes semantics.
func ParseNodes(data []byte) ([]Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse condition tree: %w", err)
	}
	return DecodeNodes(raw)
}

// DecodeNode decodes one serialized node object.
func DecodeNode(raw any) (Node, error) {
	var ln looseNode
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &ln,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Node{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Node{}, fmt.Errorf("decode condition node: %w", err)
	}

	op, _ := stringOf(ln.GroupOperator)
	if GroupOperator(op).Valid() {
		n := Node{
			GroupOperator: GroupOperator(op),
			ID:            optionalString(ln.ID),
			Quantity:      optionalQuantity(ln.Quantity),
			Groups:        make([]Node, 0, len(ln.Groups)),
		}
		for _, child := range ln.Groups {
			c, err := DecodeNode(child)
			if err != nil {
				continue
			}
			n.Groups = append(n.Groups, c)
		}
		return n, nil
	}

	n := Node{}
	n.Name, _ = stringOf(ln.Name)
	n.Operator, _ = stringOf(ln.Operator)

	start, hasStart := boundOf(ln.Start)
	end, hasEnd := boundOf(ln.End)
	switch {
	case hasStart && hasEnd:
		n.Value = Range(start, end)
	default:
		if s, ok := stringOf(ln.Value); ok {
			n.Value = Scalar(s)
		}
	}
	return n, nil
}

// stringOf renders scalar JSON values as strings. nil and composite values are absent.
func stringOf(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// boundOf extracts one range bound; empty and "null" bounds are absent.
func boundOf(v any) (string, bool) {
	s, ok := stringOf(v)
	if !ok || s == "" || s == nullSentinel {
		return "", false
	}
	return s, true
}

func optionalString(v any) *string {
	s, ok := stringOf(v)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// optionalQuantity accepts positive integers written as numbers or strings.
func optionalQuantity(v any) *int {
	var q int
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt32 {
			return nil
		}
		q = int(t)
	case int:
		q = t
	case int64:
		q = int(t)
	default:
		s, ok := stringOf(v)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		q = n
	}
	if q <= 0 {
		return nil
	}
	return &q
}

// ParseQuantity applies the quantity rules to host input text.
func ParseQuantity(s string) *int {
	return optionalQuantity(s)
}
