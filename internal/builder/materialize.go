package builder

import (
	"strconv"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Materializer: serialized nodes -> presentation arena.
 *
 * Top-level shape decisions:
 *   - empty input, or a sole bare rule: a single rule row under the root,
 *     never wrapped in a frame
 *   - otherwise one frame per group; every group after the first is an
 *     alternative and may be removed as a whole
 *   - the first node's quantity decides quantitative mode for the whole tree;
 *     quantitative trees end with an AND divider and one add-group affordance
 *
 * Each child of a group is materialized independently as a one-element list,
 * so a child group gets its own frame and alternative rules added later land
 * in the scope of the frame they were added to.
 */

// DateSlot names a date input of a rule row.
type DateSlot int

const (
	SlotValue DateSlot = iota
	SlotStart
	SlotEnd
)

func (s DateSlot) String() string {
	switch s {
	case SlotStart:
		return "start"
	case SlotEnd:
		return "end"
	default:
		return "value"
	}
}

// DateHook is notified whenever date inputs are installed on a rule row.
type DateHook interface {
	InitDatePicker(rule ElementID, slots ...DateSlot)
}

// DateHookFunc adapts a function to DateHook.
type DateHookFunc func(rule ElementID, slots ...DateSlot)

// InitDatePicker implements DateHook.
func (f DateHookFunc) InitDatePicker(rule ElementID, slots ...DateSlot) {
	f(rule, slots...)
}

type noDates struct{}

func (noDates) InitDatePicker(ElementID, ...DateSlot) {}

// Option configures materialization.
type Option func(*options)

type options struct {
	dates          DateHook
	tokens         func() string
	errorIndicator string
}

// WithDateHook installs the date-picker initializer.
func WithDateHook(h DateHook) Option {
	return func(o *options) {
		if h != nil {
			o.dates = h
		}
	}
}

// WithTokenSource replaces the radio grouping token generator.
func WithTokenSource(next func() string) Option {
	return func(o *options) {
		if next != nil {
			o.tokens = next
		}
	}
}

// WithErrorIndicator attaches host error data to the session. The builder
// never interprets it.
func WithErrorIndicator(indicator string) Option {
	return func(o *options) {
		o.errorIndicator = indicator
	}
}

func buildOptions(opts []Option) options {
	o := options{
		dates:  noDates{},
		tokens: types.NewRadioToken,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// materializer turns nodes into arena elements against one catalog.
type materializer struct {
	catalog *catalog.Catalog
	dates   DateHook
	tokens  func() string
}

// Materialize builds a presentation tree for nodes.
func Materialize(cat *catalog.Catalog, nodes []types.Node, opts ...Option) *Tree {
	o := buildOptions(opts)
	m := &materializer{catalog: cat, dates: o.dates, tokens: o.tokens}
	return m.materialize(nodes)
}

func (m *materializer) materialize(nodes []types.Node) *Tree {
	t := newTree()
	m.list(t, t.root, NoElement, nodes)

	if len(nodes) > 0 && nodes[0].Quantity != nil {
		t.quantitative = true
		divider := t.insert(KindDivider, t.root, NoElement)
		divider.Label = MsgAndDivider
		m.ensureAddGroup(t)
	}
	return t
}

// list materializes nodes under parent before the sibling before.
// It returns the first element created.
func (m *materializer) list(t *Tree, parent, before ElementID, nodes []types.Node) ElementID {
	if len(nodes) == 0 {
		return m.rule(t, parent, before, m.catalog.DefaultRule())
	}
	if len(nodes) == 1 && !nodes[0].IsGroup() {
		return m.rule(t, parent, before, nodes[0])
	}

	first := NoElement
	for i, n := range nodes {
		var id ElementID
		if n.IsGroup() {
			id = m.group(t, parent, before, n, i != 0)
		} else {
			id = m.rule(t, parent, before, n)
		}
		if first == NoElement {
			first = id
		}
	}
	return first
}

// group materializes one group frame and its children.
func (m *materializer) group(t *Tree, parent, before ElementID, n types.Node, isAlternative bool) ElementID {
	e := t.insert(KindGroup, parent, before)
	e.Frame = &Frame{
		Match:        matchOf(n.GroupOperator),
		Removable:    isAlternative,
		SubCondition: MsgSubCondition,
	}
	if isAlternative {
		e.Label = MsgEntireCondition
	}
	if n.Quantity != nil {
		e.Frame.Quantity = Input{Installed: true, Text: strconv.Itoa(*n.Quantity)}
	}
	if n.ID != nil {
		e.Frame.GroupID = Input{Installed: true, Hidden: true, Text: *n.ID}
	}

	for _, child := range n.Groups {
		m.list(t, e.ID, NoElement, []types.Node{child})
	}

	add := t.insert(KindAddRule, e.ID, NoElement)
	add.Label = MsgAddOrCondition
	return e.ID
}

// rule materializes one rule row: field options, operator options resolved
// against the catalog, the value shape of the selected operator, and the
// stored value.
func (m *materializer) rule(t *Tree, parent, before ElementID, n types.Node) ElementID {
	e := t.insert(KindRule, parent, before)
	row := &Row{Token: m.tokens()}
	e.Row = row

	for _, f := range m.catalog.Fields() {
		row.FieldOptions = append(row.FieldOptions, SelectOption{Value: f.Name, Label: f.DisplayLabel()})
	}
	field, ok := m.catalog.ResolveField(n.Name)
	if ok {
		row.Field = field.Name
	}
	m.populateOperators(row, field, n.Operator)
	m.install(t, e.ID)
	restore(row, n.Value)
	return e.ID
}

// populateOperators lists field's operators on the row and selects operator
// when the field declares it, otherwise the first operator.
func (m *materializer) populateOperators(row *Row, field types.Field, operator string) {
	row.OperatorOptions = nil
	for _, op := range m.catalog.Operators(field.Name) {
		row.OperatorOptions = append(row.OperatorOptions, OperatorOption{
			Name:      op.Name,
			Label:     op.DisplayLabel(),
			FieldType: op.FieldType,
		})
	}
	row.Operator = ""
	if op, ok := catalog.ResolveOperator(field, operator); ok {
		row.Operator = op.Name
	}
}

// ensureAddGroup appends the add-group affordance to the root unless one exists.
func (m *materializer) ensureAddGroup(t *Tree) {
	if t.lastChildOfKind(t.root, KindAddGroup) != NoElement {
		return
	}
	add := t.insert(KindAddGroup, t.root, NoElement)
	add.Label = MsgAddAndCondition
}

func matchOf(op types.GroupOperator) string {
	switch op {
	case types.GroupOr:
		return MatchAny
	case types.GroupNot:
		return MatchNone
	default:
		return MatchAll
	}
}
