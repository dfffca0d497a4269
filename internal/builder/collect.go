package builder

import (
	"github.com/solatis/rulebuilder/internal/types"
)

// Result wraps collected nodes in the shape hosts submit: {"data": [...]}.
type Result struct {
	Data []types.Node `json:"data"`
}

// Collect walks the presentation tree back into serialized nodes.
//
// Only frames and rule rows are visited, depth-first and in order. A frame with
// no rule row anywhere below it yields nothing, so empty groups never reach the
// output. A frame whose match selector is not all/any/none is read as a leaf
// rule carrying the field, operator and value of its first rule row.
func Collect(t *Tree) Result {
	out := Result{Data: []types.Node{}}
	for _, id := range t.Children(t.root) {
		if n, ok := collectNode(t, id); ok {
			out.Data = append(out.Data, n)
		}
	}
	return out
}

func collectNode(t *Tree, id ElementID) (types.Node, bool) {
	e := t.elems[id]
	switch e.Kind {
	case KindRule:
		return ruleNode(e.Row), true
	case KindGroup:
		if !t.hasRule(id) {
			return types.Node{}, false
		}
	default:
		return types.Node{}, false
	}

	op, ok := groupOperatorOf(e.Frame.Match)
	if !ok {
		return ruleNode(t.elems[t.firstRule(id)].Row), true
	}

	n := types.Node{GroupOperator: op, Groups: []types.Node{}}
	if e.Frame.Quantity.Installed {
		n.Quantity = types.ParseQuantity(e.Frame.Quantity.Text)
	}
	if e.Frame.GroupID.Installed && e.Frame.GroupID.Text != "" {
		groupID := e.Frame.GroupID.Text
		n.ID = &groupID
	}
	for _, c := range e.Children {
		if child, ok := collectNode(t, c); ok {
			n.Groups = append(n.Groups, child)
		}
	}
	return n, true
}

func ruleNode(row *Row) types.Node {
	return types.NewRule(row.Field, row.Operator, extract(row))
}

func groupOperatorOf(match string) (types.GroupOperator, bool) {
	switch match {
	case MatchAll:
		return types.GroupAnd, true
	case MatchAny:
		return types.GroupOr, true
	case MatchNone:
		return types.GroupNot, true
	default:
		return "", false
	}
}
