package builder

import (
	"fmt"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Edit operations.
 *
 * Structural edits mutate the arena in place and materialize whatever they
 * insert through the same code path as initial materialization:
 *
 *   - AddNestedCondition: AND sub-group with one default rule, inside a frame
 *   - AddAlternativeRule: default rule before the frame's add-rule affordance
 *   - AddTopLevelGroup:   quantitative trees only; group(quantity=1) plus an
 *                         AND divider before the add-group affordance
 *   - RemoveRule:         last direct rule of a frame takes the frame and one
 *                         adjacent divider with it, preceding first
 *   - RemoveCondition:    alternative top-level frame only
 *   - ChangeField / ChangeOperator: re-run the value-shape policy
 *
 * Setters mirror what a user types or clicks into the live widgets. Every
 * method validates its target first and leaves the tree untouched on error.
 */

func (b *Builder) element(id ElementID, kind Kind) (*Element, error) {
	e, ok := b.tree.Element(id)
	if !ok {
		return nil, fmt.Errorf("element %d: %w", id, types.ErrElementNotFound)
	}
	if e.Kind != kind {
		switch kind {
		case KindGroup:
			return nil, fmt.Errorf("element %d: %w", id, types.ErrNotGroup)
		default:
			return nil, fmt.Errorf("element %d: %w", id, types.ErrNotRule)
		}
	}
	return e, nil
}

// AddNestedCondition inserts a default AND sub-group into frame and returns it.
func (b *Builder) AddNestedCondition(frame ElementID) (ElementID, error) {
	if _, err := b.element(frame, KindGroup); err != nil {
		return NoElement, err
	}
	sub := types.NewGroup(types.GroupAnd, b.m.catalog.DefaultRule())
	before := b.tree.lastChildOfKind(frame, KindAddRule)
	return b.m.group(b.tree, frame, before, sub, false), nil
}

// AddAlternativeRule inserts a default rule into frame, immediately before the
// frame's add-rule affordance, and returns it.
func (b *Builder) AddAlternativeRule(frame ElementID) (ElementID, error) {
	if _, err := b.element(frame, KindGroup); err != nil {
		return NoElement, err
	}
	before := b.tree.lastChildOfKind(frame, KindAddRule)
	return b.m.rule(b.tree, frame, before, b.m.catalog.DefaultRule()), nil
}

// AddTopLevelGroup inserts a removable quantity-1 group holding one default
// rule, followed by an AND divider, before the add-group affordance.
func (b *Builder) AddTopLevelGroup() (ElementID, error) {
	t := b.tree
	if !t.quantitative {
		return NoElement, types.ErrNotQuantitative
	}

	qty := 1
	group := types.Node{GroupOperator: types.GroupAnd, Quantity: &qty, Groups: []types.Node{}}
	before := t.lastChildOfKind(t.root, KindAddGroup)
	id := b.m.group(t, t.root, before, group, true)

	divider := t.insert(KindDivider, t.root, before)
	divider.Label = MsgAndDivider

	// the new frame only holds its add-rule affordance; the default rule goes first
	first := NoElement
	if children := t.Children(id); len(children) > 0 {
		first = children[0]
	}
	b.m.rule(t, id, first, b.m.catalog.DefaultRule())

	b.m.ensureAddGroup(t)
	return id, nil
}

// RemoveRule removes a rule row. When it is the last rule directly inside its
// frame, the whole frame goes, together with the divider right before it, or
// the one right after it when the frame opens the list.
func (b *Builder) RemoveRule(rule ElementID) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	t := b.tree
	parent := t.elems[e.Parent]
	if parent.Kind == KindGroup && t.directRules(parent.ID) == 1 {
		divider := t.sibling(parent.ID, -1)
		if divider == NoElement || t.elems[divider].Kind != KindDivider {
			divider = t.sibling(parent.ID, 1)
		}
		if divider != NoElement && t.elems[divider].Kind == KindDivider {
			t.remove(divider)
		}
		t.remove(parent.ID)
		return nil
	}
	t.remove(rule)
	return nil
}

// RemoveCondition removes an alternative top-level group as a whole.
// Siblings, dividers included, are left in place.
func (b *Builder) RemoveCondition(frame ElementID) error {
	e, err := b.element(frame, KindGroup)
	if err != nil {
		return err
	}
	if !e.Frame.Removable {
		return fmt.Errorf("element %d: %w", frame, types.ErrNotRemovable)
	}
	b.tree.remove(frame)
	return nil
}

// ChangeField selects field on a rule row. The operator list is rebuilt from
// the field's catalog entry; the current operator survives only if the field
// declares it, otherwise the first operator is selected. The value widgets are
// reinstalled for the resulting operator.
func (b *Builder) ChangeField(rule ElementID, field string) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	f, ok := b.m.catalog.Field(field)
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnknownField, field)
	}
	e.Row.Field = f.Name
	b.m.populateOperators(e.Row, f, e.Row.Operator)
	b.m.install(b.tree, rule)
	return nil
}

// ChangeOperator selects operator on a rule row and reinstalls its value widgets.
func (b *Builder) ChangeOperator(rule ElementID, operator string) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	found := false
	for _, op := range e.Row.OperatorOptions {
		if op.Name == operator {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q on field %q", types.ErrUnknownOperator, operator, e.Row.Field)
	}
	e.Row.Operator = operator
	b.m.install(b.tree, rule)
	return nil
}

// SetMatch sets a frame's match selector to all, any or none.
func (b *Builder) SetMatch(frame ElementID, match string) error {
	e, err := b.element(frame, KindGroup)
	if err != nil {
		return err
	}
	if _, ok := groupOperatorOf(match); !ok {
		return fmt.Errorf("%w: match %q", types.ErrShapeMismatch, match)
	}
	e.Frame.Match = match
	return nil
}

// SetQuantity writes the text of a frame's quantity input.
func (b *Builder) SetQuantity(frame ElementID, text string) error {
	e, err := b.element(frame, KindGroup)
	if err != nil {
		return err
	}
	if !e.Frame.Quantity.Installed {
		return fmt.Errorf("element %d has no quantity: %w", frame, types.ErrShapeMismatch)
	}
	e.Frame.Quantity.Text = text
	return nil
}

// SetText writes the value widget of a rule row. For SELECT rows text must
// name one of the row's choices.
func (b *Builder) SetText(rule ElementID, text string) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	row := e.Row
	if !row.Value.Installed {
		return fmt.Errorf("%w: %s has no value input", types.ErrShapeMismatch, row.Shape)
	}
	if row.Shape == types.FieldTypeSelect && !hasChoice(row.Choices, text) {
		return fmt.Errorf("%w: %q is not a choice", types.ErrShapeMismatch, text)
	}
	row.Value.Text = text
	return nil
}

// SetRange writes the start and end inputs of a rule row.
func (b *Builder) SetRange(rule ElementID, start, end string) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	row := e.Row
	if !row.Start.Installed || !row.End.Installed {
		return fmt.Errorf("%w: %s has no range inputs", types.ErrShapeMismatch, row.Shape)
	}
	row.Start.Text, row.End.Text = start, end
	return nil
}

// SetBoolean checks one radio of a rule row's boolean pair.
func (b *Builder) SetBoolean(rule ElementID, value bool) error {
	e, err := b.element(rule, KindRule)
	if err != nil {
		return err
	}
	row := e.Row
	if row.Radios == nil {
		return fmt.Errorf("%w: %s has no radios", types.ErrShapeMismatch, row.Shape)
	}
	row.Radios.True, row.Radios.False = value, !value
	return nil
}
