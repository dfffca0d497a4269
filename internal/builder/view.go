package builder

import (
	"github.com/solatis/rulebuilder/internal/types"
)

// View is a read-only nested projection of a Tree, suitable for encoding.
type View struct {
	ID           ElementID  `json:"id"`
	Kind         string     `json:"kind"`
	Label        string     `json:"label,omitempty"`
	Frame        *FrameView `json:"frame,omitempty"`
	Row          *RowView   `json:"row,omitempty"`
	Children     []View     `json:"children,omitempty"`
	Quantitative bool       `json:"quantitative,omitempty"`
}

// FrameView projects a Frame.
// The header reads: Prefix [Quantity Of] selector Suffix.
type FrameView struct {
	Match        string  `json:"match"`
	MatchLabel   string  `json:"matchLabel"`
	Prefix       string  `json:"prefix"`
	Of           string  `json:"of,omitempty"`
	Suffix       string  `json:"suffix"`
	Quantity     *string `json:"quantity,omitempty"`
	GroupID      *string `json:"groupId,omitempty"`
	Removable    bool    `json:"removable,omitempty"`
	SubCondition string  `json:"subCondition"`
}

// RowView projects a Row.
type RowView struct {
	Token     string          `json:"token"`
	Field     string          `json:"field"`
	Fields    []SelectOption  `json:"fields"`
	Operator  string          `json:"operator"`
	Operators []OperatorView  `json:"operators"`
	Shape     types.FieldType `json:"shape,omitempty"`
	Value     *InputView      `json:"value,omitempty"`
	Choices   []SelectOption  `json:"choices,omitempty"`
	Start     *InputView      `json:"start,omitempty"`
	RangeAnd  string          `json:"rangeAnd,omitempty"`
	End       *InputView      `json:"end,omitempty"`
	Boolean   *BooleanView    `json:"boolean,omitempty"`
}

// BooleanView projects the radio pair of a BOOLEAN row.
type BooleanView struct {
	Checked    bool   `json:"checked"`
	TrueLabel  string `json:"trueLabel"`
	FalseLabel string `json:"falseLabel"`
}

// OperatorView projects an OperatorOption.
type OperatorView struct {
	Name      string          `json:"name"`
	Label     string          `json:"label"`
	FieldType types.FieldType `json:"fieldType"`
}

// InputView projects an installed Input.
type InputView struct {
	Text       string `json:"text"`
	Hidden     bool   `json:"hidden,omitempty"`
	DatePicker bool   `json:"datePicker,omitempty"`
}

// Snapshot projects t starting at the root. Message ids are resolved through
// labels; a nil labels leaves them as ids.
func Snapshot(t *Tree, labels Labels) View {
	if labels == nil {
		labels = LabelMap{}
	}
	v := snapshot(t, t.root, labels)
	v.Quantitative = t.quantitative
	return v
}

func snapshot(t *Tree, id ElementID, labels Labels) View {
	e := t.elems[id]
	v := View{ID: e.ID, Kind: e.Kind.String()}
	if e.Label != MsgNone {
		v.Label = labels.Message(e.Label)
	}
	if e.Frame != nil {
		v.Frame = &FrameView{
			Match:        e.Frame.Match,
			MatchLabel:   labels.Message(MatchLabel(e.Frame.Match)),
			Prefix:       labels.Message(MsgMatch),
			Suffix:       labels.Message(MsgOfTheFollowing),
			Quantity:     inputText(e.Frame.Quantity),
			GroupID:      inputText(e.Frame.GroupID),
			Removable:    e.Frame.Removable,
			SubCondition: message(labels, e.Frame.SubCondition),
		}
		if e.Frame.Quantity.Installed {
			v.Frame.Of = labels.Message(MsgOf)
		}
	}
	if e.Row != nil {
		v.Row = rowView(e.Row, labels)
	}
	for _, c := range e.Children {
		v.Children = append(v.Children, snapshot(t, c, labels))
	}
	return v
}

func rowView(r *Row, labels Labels) *RowView {
	rv := &RowView{
		Token:     r.Token,
		Field:     r.Field,
		Fields:    r.FieldOptions,
		Operator:  r.Operator,
		Operators: make([]OperatorView, 0, len(r.OperatorOptions)),
		Shape:     r.Shape,
		Value:     inputView(r.Value),
		Choices:   r.Choices,
		Start:     inputView(r.Start),
		RangeAnd:  message(labels, r.RangeLabel),
		End:       inputView(r.End),
	}
	for _, op := range r.OperatorOptions {
		rv.Operators = append(rv.Operators, OperatorView(op))
	}
	if r.Radios != nil {
		rv.Boolean = &BooleanView{
			Checked:    r.Radios.True,
			TrueLabel:  message(labels, r.Radios.TrueLabel),
			FalseLabel: message(labels, r.Radios.FalseLabel),
		}
	}
	return rv
}

func message(labels Labels, id MessageID) string {
	if id == MsgNone {
		return ""
	}
	return labels.Message(id)
}

func inputView(in Input) *InputView {
	if !in.Installed {
		return nil
	}
	return &InputView{Text: in.Text, Hidden: in.Hidden, DatePicker: in.DatePicker}
}

func inputText(in Input) *string {
	if !in.Installed {
		return nil
	}
	s := in.Text
	return &s
}
