package builder

import (
	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Value-shape policy.
 *
 * The selected operator's declared FieldType decides which value widgets a
 * rule row carries:
 *
 *   NONE        hidden value input
 *   TEXT        value input
 *   DATE        value input with a date picker
 *   RANGE       start and end inputs
 *   DATE_RANGE  start and end inputs with date pickers
 *   BOOLEAN     radio pair grouped by the row token, false preselected
 *   SELECT      value select over the field's choice-list, first choice preselected
 *
 * install always tears down every previous widget first, so exactly one
 * representation is live after an operator change. restore writes a stored
 * Value into freshly installed widgets; extract reads the widgets back with a
 * fixed precedence: radios, then range, then scalar.
 */

// nullSentinel is the placeholder older pages write for an unset range bound.
const nullSentinel = "null"

// selectedOperator returns the row's selected operator option.
func (r *Row) selectedOperator() (OperatorOption, bool) {
	for _, op := range r.OperatorOptions {
		if op.Name == r.Operator {
			return op, true
		}
	}
	return OperatorOption{}, false
}

// install replaces the value widgets of rule row id with the representation
// declared by its selected operator.
func (m *materializer) install(t *Tree, id ElementID) {
	e := t.elems[id]
	row := e.Row

	row.Value = Input{}
	row.Start = Input{}
	row.End = Input{}
	row.Radios = nil
	row.RangeLabel = MsgNone
	row.Choices = nil
	row.Shape = ""

	op, ok := row.selectedOperator()
	if !ok {
		return
	}
	row.Shape = op.FieldType

	switch op.FieldType {
	case types.FieldTypeNone:
		row.Value = Input{Installed: true, Hidden: true}
	case types.FieldTypeText:
		row.Value = Input{Installed: true}
	case types.FieldTypeDate:
		row.Value = Input{Installed: true, DatePicker: true}
		m.dates.InitDatePicker(id, SlotValue)
	case types.FieldTypeRange:
		row.Start = Input{Installed: true}
		row.End = Input{Installed: true}
		row.RangeLabel = MsgRangeAnd
	case types.FieldTypeDateRange:
		row.Start = Input{Installed: true, DatePicker: true}
		row.End = Input{Installed: true, DatePicker: true}
		row.RangeLabel = MsgRangeAnd
		m.dates.InitDatePicker(id, SlotStart, SlotEnd)
	case types.FieldTypeBoolean:
		row.Radios = &Radios{
			Token:      row.Token,
			False:      true,
			TrueLabel:  MsgBooleanTrue,
			FalseLabel: MsgBooleanFalse,
		}
	case types.FieldTypeSelect:
		field, _ := m.catalog.Field(row.Field)
		def, _ := field.Operator(op.Name)
		for _, c := range catalog.Choices(field, def) {
			row.Choices = append(row.Choices, SelectOption{Value: c.Name, Label: c.DisplayLabel()})
		}
		row.Value = Input{Installed: true}
		if len(row.Choices) > 0 {
			row.Value.Text = row.Choices[0].Value
		}
	}
}

// restore writes a stored value into the row's installed widgets.
// Precedence: "true" on radios, then a complete range, then "false" or absent
// on radios, then the scalar into the value widget.
func restore(row *Row, v types.Value) {
	switch {
	case row.Radios != nil && v.Kind == types.ValueScalar && v.Scalar == "true":
		row.Radios.True, row.Radios.False = true, false
	case v.Kind == types.ValueRange && bound(v.Start) && bound(v.End):
		if row.Start.Installed && row.End.Installed {
			row.Start.Text = v.Start
			row.End.Text = v.End
		}
	case v.IsAbsent() || (row.Radios != nil && v.Kind == types.ValueScalar && v.Scalar == "false"):
		if row.Radios != nil {
			row.Radios.True, row.Radios.False = false, true
		}
	case v.Kind == types.ValueScalar:
		if !row.Value.Installed {
			return
		}
		if row.Shape == types.FieldTypeSelect && !hasChoice(row.Choices, v.Scalar) {
			// unknown choice keeps the preselected first entry
			return
		}
		row.Value.Text = v.Scalar
	}
}

// extract reads the row's widgets back into a Value.
func extract(row *Row) types.Value {
	switch {
	case row.Radios != nil && row.Radios.True:
		return types.Bool(true)
	case row.Radios != nil && row.Radios.False:
		return types.Bool(false)
	case row.Start.Installed && row.End.Installed && bound(row.Start.Text) && bound(row.End.Text):
		return types.Range(row.Start.Text, row.End.Text)
	case row.Value.Installed && row.Value.Text != "":
		return types.Scalar(row.Value.Text)
	default:
		return types.Value{}
	}
}

// bound reports whether a range bound carries a value.
// The literal "null" written by older pages counts as missing.
func bound(s string) bool {
	return s != "" && s != nullSentinel
}

func hasChoice(choices []SelectOption, name string) bool {
	for _, c := range choices {
		if c.Value == name {
			return true
		}
	}
	return false
}
