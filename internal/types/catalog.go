package types

import "strings"

// FieldType is the declared value shape of an operator.
type FieldType string

const (
	FieldTypeNone      FieldType = "NONE"
	FieldTypeText      FieldType = "TEXT"
	FieldTypeDate      FieldType = "DATE"
	FieldTypeRange     FieldType = "RANGE"
	FieldTypeDateRange FieldType = "DATE_RANGE"
	FieldTypeBoolean   FieldType = "BOOLEAN"
	FieldTypeSelect    FieldType = "SELECT"
)

// ParseFieldType normalizes s into a FieldType.
// Unknown names return false; callers treat them as having no value widget.
func ParseFieldType(s string) (FieldType, bool) {
	ft := FieldType(strings.ToUpper(strings.TrimSpace(s)))
	switch ft {
	case FieldTypeNone, FieldTypeText, FieldTypeDate, FieldTypeRange,
		FieldTypeDateRange, FieldTypeBoolean, FieldTypeSelect:
		return ft, true
	default:
		return ft, false
	}
}

// Choice is one entry of a SELECT choice-list.
type Choice struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DisplayLabel returns Label, or Name when no label is set.
func (c Choice) DisplayLabel() string {
	if c.Label == "" {
		return c.Name
	}
	return c.Label
}

// OperatorDef describes one operator selectable for a field.
type OperatorDef struct {
	Name      string    `json:"name" yaml:"name"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	FieldType FieldType `json:"fieldType" yaml:"fieldType"`
	Choices   []Choice  `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// DisplayLabel returns Label, or Name when no label is set.
func (o OperatorDef) DisplayLabel() string {
	if o.Label == "" {
		return o.Name
	}
	return o.Label
}

// Field is a catalog entry: a comparable property with its ordered operators.
// Choices is the choice-list used by the field's SELECT-typed operators.
type Field struct {
	Name      string        `json:"name" yaml:"name"`
	Label     string        `json:"label" yaml:"label"`
	Operators []OperatorDef `json:"operators" yaml:"operators"`
	Choices   []Choice      `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// DisplayLabel returns Label, or Name when no label is set.
func (f Field) DisplayLabel() string {
	if f.Label == "" {
		return f.Name
	}
	return f.Label
}

// Operator returns the operator named name, if the field declares it.
func (f Field) Operator(name string) (OperatorDef, bool) {
	for _, op := range f.Operators {
		if op.Name == name {
			return op, true
		}
	}
	return OperatorDef{}, false
}
