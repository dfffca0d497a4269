package rules

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/rulebuilder/internal/types"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		value     types.Value
		fieldType types.FieldType
		want      types.Value
		wantErr   error
	}{
		// NONE
		{
			name:      "none: value dropped",
			value:     types.Scalar("x"),
			fieldType: types.FieldTypeNone,
			want:      types.Value{},
		},
		// TEXT
		{
			name:      "text: verbatim",
			value:     types.Scalar(" 21 "),
			fieldType: types.FieldTypeText,
			want:      types.Scalar(" 21 "),
		},
		{
			name:      "text: range rejected",
			value:     types.Range("1", "2"),
			fieldType: types.FieldTypeText,
			wantErr:   types.ErrCoercionFailed,
		},
		{
			name:      "text: absent stays absent",
			value:     types.Value{},
			fieldType: types.FieldTypeText,
			want:      types.Value{},
		},
		// BOOLEAN
		{
			name:      "boolean: canonical true",
			value:     types.Scalar("true"),
			fieldType: types.FieldTypeBoolean,
			want:      types.Bool(true),
		},
		{
			name:      "boolean: upper-case yes",
			value:     types.Scalar("YES"),
			fieldType: types.FieldTypeBoolean,
			want:      types.Bool(true),
		},
		{
			name:      "boolean: zero",
			value:     types.Scalar("0"),
			fieldType: types.FieldTypeBoolean,
			want:      types.Bool(false),
		},
		{
			name:      "boolean: garbage",
			value:     types.Scalar("maybe"),
			fieldType: types.FieldTypeBoolean,
			wantErr:   types.ErrCoercionFailed,
		},
		// DATE
		{
			name:      "date: canonical",
			value:     types.Scalar("2024-03-01"),
			fieldType: types.FieldTypeDate,
			want:      types.Scalar("2024-03-01"),
		},
		{
			name:      "date: US layout",
			value:     types.Scalar("03/01/2024"),
			fieldType: types.FieldTypeDate,
			want:      types.Scalar("2024-03-01"),
		},
		{
			name:      "date: RFC3339",
			value:     types.Scalar("2024-03-01T10:00:00Z"),
			fieldType: types.FieldTypeDate,
			want:      types.Scalar("2024-03-01"),
		},
		{
			name:      "date: not a date",
			value:     types.Scalar("yesterday"),
			fieldType: types.FieldTypeDate,
			wantErr:   types.ErrCoercionFailed,
		},
		// RANGE
		{
			name:      "range: bounds trimmed, order kept",
			value:     types.Range(" 9 ", "1"),
			fieldType: types.FieldTypeRange,
			want:      types.Range("9", "1"),
		},
		{
			name:      "range: scalar rejected",
			value:     types.Scalar("5"),
			fieldType: types.FieldTypeRange,
			wantErr:   types.ErrCoercionFailed,
		},
		// DATE_RANGE
		{
			name:      "date range: both bounds normalized",
			value:     types.Range("2024/01/01", "12/31/2024"),
			fieldType: types.FieldTypeDateRange,
			want:      types.Range("2024-01-01", "2024-12-31"),
		},
		{
			name:      "date range: bad end",
			value:     types.Range("2024-01-01", "soon"),
			fieldType: types.FieldTypeDateRange,
			wantErr:   types.ErrCoercionFailed,
		},
		// unknown
		{
			name:      "unknown field type",
			value:     types.Scalar("x"),
			fieldType: types.FieldType("NUMBER"),
			wantErr:   types.ErrCoercionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.fieldType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("Coerce() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCoercer_ConfiguredLayout(t *testing.T) {
	c := NewCoercer("02.01.2006", "")

	got, err := c.Coerce(types.Scalar("01.03.2024"), types.FieldTypeDate)
	if err != nil {
		t.Fatalf("Coerce() error = %v", err)
	}
	if got != types.Scalar("2024-03-01") {
		t.Errorf("Coerce() = %+v, want 2024-03-01", got)
	}

	if _, err := Coerce(types.Scalar("01.03.2024"), types.FieldTypeDate); !errors.Is(err, types.ErrCoercionFailed) {
		t.Errorf("default Coerce() error = %v, want %v", err, types.ErrCoercionFailed)
	}
}

// Property-based test: coercion is idempotent
func TestCoerce_PropertyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	fieldTypes := []types.FieldType{
		types.FieldTypeNone, types.FieldTypeText, types.FieldTypeDate, types.FieldTypeRange,
		types.FieldTypeDateRange, types.FieldTypeBoolean, types.FieldTypeSelect,
	}

	properties.Property("coerce(coerce(v)) == coerce(v)", prop.ForAll(
		func(scalar, start, end string, ranged bool, ftIndex int) bool {
			v := types.Scalar(scalar)
			if ranged {
				v = types.Range(start, end)
			}
			ft := fieldTypes[ftIndex]
			once, err := Coerce(v, ft)
			if err != nil {
				return true
			}
			twice, err := Coerce(once, ft)
			return err == nil && twice == once
		},
		gen.OneGenOf(gen.AlphaString(), gen.Const("2024-02-29"), gen.Const("on")),
		gen.OneGenOf(gen.NumString(), gen.Const("01/15/2024")),
		gen.OneGenOf(gen.NumString(), gen.Const("2024/12/31")),
		gen.Bool(),
		gen.IntRange(0, len(fieldTypes)-1),
	))

	properties.TestingRun(t)
}
