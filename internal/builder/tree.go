package builder

import (
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Presentation tree arena.
 *
 * The editable structure a host renders is an arena of elements addressed by
 * ElementID. Each element records its parent and its ordered children; removal
 * detaches a subtree and tombstones its slots so ids are never reused within a
 * session. Rendering is a projection of this arena (see View); the arena itself
 * knows nothing about screens.
 *
 * Element kinds:
 *   - root: the container handed to the host
 *   - group: a condition frame (match selector, quantity, hidden id)
 *   - rule: a rule row (field, operator, value widgets)
 *   - divider: the AND divider between top-level groups
 *   - add-group: the top-level "add and condition" affordance
 *   - add-rule: the trailing "add or condition" affordance of a frame
 */

// ElementID addresses one element of a Tree.
type ElementID int

// NoElement is the nil ElementID.
const NoElement ElementID = -1

// Kind tags an element.
type Kind int

const (
	KindRoot Kind = iota
	KindGroup
	KindRule
	KindDivider
	KindAddGroup
	KindAddRule
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindGroup:
		return "group"
	case KindRule:
		return "rule"
	case KindDivider:
		return "divider"
	case KindAddGroup:
		return "add-group"
	case KindAddRule:
		return "add-rule"
	default:
		return "unknown"
	}
}

// Match selector values of a frame.
const (
	MatchAll  = "all"
	MatchAny  = "any"
	MatchNone = "none"
)

// Input is the state of one text-like widget.
type Input struct {
	Installed  bool
	Text       string
	Hidden     bool
	DatePicker bool
}

// SelectOption is one entry of a select widget.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OperatorOption is one entry of a rule's operator selector.
type OperatorOption struct {
	Name      string
	Label     string
	FieldType types.FieldType
}

// Radios is the boolean radio pair of a rule row.
// Token groups the pair; it is unique to the row instance.
type Radios struct {
	Token      string
	True       bool
	False      bool
	TrueLabel  MessageID
	FalseLabel MessageID
}

// Frame is the state of a condition group element.
type Frame struct {
	Match        string
	Quantity     Input
	GroupID      Input
	Removable    bool
	SubCondition MessageID
}

// Row is the state of a rule element.
type Row struct {
	Token           string
	Field           string
	FieldOptions    []SelectOption
	Operator        string
	OperatorOptions []OperatorOption
	Shape           types.FieldType
	Value           Input
	Choices         []SelectOption
	Start           Input
	End             Input
	Radios          *Radios
	RangeLabel      MessageID
}

// Element is one node of the arena.
type Element struct {
	ID       ElementID
	Kind     Kind
	Parent   ElementID
	Children []ElementID
	Frame    *Frame
	Row      *Row
	Label    MessageID
}

// Tree is the presentation arena of one editing session.
type Tree struct {
	elems        []*Element
	root         ElementID
	quantitative bool
}

func newTree() *Tree {
	t := &Tree{}
	t.root = t.alloc(KindRoot)
	return t
}

// Root returns the root container.
func (t *Tree) Root() ElementID {
	return t.root
}

// Quantitative reports whether the tree was materialized in quantitative mode.
func (t *Tree) Quantitative() bool {
	return t.quantitative
}

// Element returns the live element id.
func (t *Tree) Element(id ElementID) (*Element, bool) {
	if id < 0 || int(id) >= len(t.elems) {
		return nil, false
	}
	e := t.elems[id]
	return e, e != nil
}

// Children returns the ordered children of id.
func (t *Tree) Children(id ElementID) []ElementID {
	e, ok := t.Element(id)
	if !ok {
		return nil
	}
	return e.Children
}

// Len returns the number of live elements, root included.
func (t *Tree) Len() int {
	n := 0
	for _, e := range t.elems {
		if e != nil {
			n++
		}
	}
	return n
}

// Walk visits live elements depth-first in child order, starting at the root.
// Returning false from fn skips the element's children.
func (t *Tree) Walk(fn func(e *Element, depth int) bool) {
	var visit func(id ElementID, depth int)
	visit = func(id ElementID, depth int) {
		e, ok := t.Element(id)
		if !ok {
			return
		}
		if !fn(e, depth) {
			return
		}
		for _, c := range e.Children {
			visit(c, depth+1)
		}
	}
	visit(t.root, 0)
}

// Find returns the ids of live elements of kind k in walk order.
func (t *Tree) Find(k Kind) []ElementID {
	var ids []ElementID
	t.Walk(func(e *Element, _ int) bool {
		if e.Kind == k {
			ids = append(ids, e.ID)
		}
		return true
	})
	return ids
}

func (t *Tree) alloc(kind Kind) ElementID {
	id := ElementID(len(t.elems))
	t.elems = append(t.elems, &Element{ID: id, Kind: kind, Parent: NoElement})
	return id
}

// insert creates an element under parent, before the sibling before, or at the
// end when before is NoElement or not a child of parent.
func (t *Tree) insert(kind Kind, parent, before ElementID) *Element {
	id := t.alloc(kind)
	e := t.elems[id]
	e.Parent = parent
	p := t.elems[parent]
	if i := t.indexOf(parent, before); i >= 0 {
		p.Children = append(p.Children, NoElement)
		copy(p.Children[i+1:], p.Children[i:])
		p.Children[i] = id
	} else {
		p.Children = append(p.Children, id)
	}
	return e
}

// indexOf returns the position of child under parent, or -1.
func (t *Tree) indexOf(parent, child ElementID) int {
	if child == NoElement {
		return -1
	}
	p, ok := t.Element(parent)
	if !ok {
		return -1
	}
	for i, c := range p.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// sibling returns the sibling offset positions away from id, or NoElement.
func (t *Tree) sibling(id ElementID, offset int) ElementID {
	e, ok := t.Element(id)
	if !ok || e.Parent == NoElement {
		return NoElement
	}
	siblings := t.elems[e.Parent].Children
	i := t.indexOf(e.Parent, id) + offset
	if i < 0 || i >= len(siblings) {
		return NoElement
	}
	return siblings[i]
}

// lastChildOfKind returns the last direct child of parent with kind k.
func (t *Tree) lastChildOfKind(parent ElementID, k Kind) ElementID {
	children := t.Children(parent)
	for i := len(children) - 1; i >= 0; i-- {
		if t.elems[children[i]].Kind == k {
			return children[i]
		}
	}
	return NoElement
}

// remove detaches id from its parent and tombstones its subtree.
func (t *Tree) remove(id ElementID) {
	e, ok := t.Element(id)
	if !ok || id == t.root {
		return
	}
	if e.Parent != NoElement {
		p := t.elems[e.Parent]
		if i := t.indexOf(e.Parent, id); i >= 0 {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
		}
	}
	var drop func(ElementID)
	drop = func(id ElementID) {
		for _, c := range t.elems[id].Children {
			drop(c)
		}
		t.elems[id] = nil
	}
	drop(id)
}

// hasRule reports whether id has a rule row anywhere below it.
func (t *Tree) hasRule(id ElementID) bool {
	return t.firstRule(id) != NoElement
}

// firstRule returns the first rule row below id in walk order, or NoElement.
func (t *Tree) firstRule(id ElementID) ElementID {
	for _, c := range t.Children(id) {
		if t.elems[c].Kind == KindRule {
			return c
		}
		if r := t.firstRule(c); r != NoElement {
			return r
		}
	}
	return NoElement
}

// directRules counts the rule rows directly under a frame.
func (t *Tree) directRules(id ElementID) int {
	n := 0
	for _, c := range t.Children(id) {
		if t.elems[c].Kind == KindRule {
			n++
		}
	}
	return n
}
