// internal/rules/coercion.go
package rules

import (
	"strings"
	"time"

	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Value coercion per declared field type.
 *
 * Collected values are whatever the host typed into a widget. Coercion brings
 * them into the canonical form of the operator's FieldType:
 *
 *   - NONE: value dropped
 *   - TEXT, SELECT: scalar kept verbatim
 *   - BOOLEAN: true/false, 1/0, yes/no, on/off (any case) to "true"/"false"
 *   - DATE: any accepted layout rewritten as 2006-01-02
 *   - RANGE: bounds trimmed, order untouched
 *   - DATE_RANGE: both bounds as DATE
 *
 * Absent values stay absent; deciding whether a value is required is the
 * validator's job. A scalar where a range is expected, or the reverse, fails.
 */

// DateFormat is the canonical layout of DATE values.
const DateFormat = "2006-01-02"

// defaultDateLayouts are accepted on input in addition to any configured layout.
var defaultDateLayouts = []string{
	DateFormat,
	"2006/01/02",
	"01/02/2006",
	time.RFC3339,
}

// Coercer coerces values with a set of accepted date layouts.
type Coercer struct {
	layouts []string
}

// NewCoercer returns a Coercer accepting the default date layouts plus extra.
// Empty layouts are ignored.
func NewCoercer(extra ...string) *Coercer {
	c := &Coercer{}
	for _, l := range extra {
		if l != "" {
			c.layouts = append(c.layouts, l)
		}
	}
	c.layouts = append(c.layouts, defaultDateLayouts...)
	return c
}

// Coerce converts v to the canonical form of fieldType using the default layouts.
func Coerce(v types.Value, fieldType types.FieldType) (types.Value, error) {
	return NewCoercer().Coerce(v, fieldType)
}

// Coerce converts v to the canonical form of fieldType.
// Returns ErrCoercionFailed for impossible coercions.
func (c *Coercer) Coerce(v types.Value, fieldType types.FieldType) (types.Value, error) {
	if fieldType == types.FieldTypeNone {
		return types.Value{}, nil
	}
	if v.IsAbsent() {
		return v, nil
	}

	switch fieldType {
	case types.FieldTypeText, types.FieldTypeSelect:
		if v.Kind != types.ValueScalar {
			return types.Value{}, types.ErrCoercionFailed
		}
		return v, nil
	case types.FieldTypeBoolean:
		if v.Kind != types.ValueScalar {
			return types.Value{}, types.ErrCoercionFailed
		}
		return coerceBoolean(v.Scalar)
	case types.FieldTypeDate:
		if v.Kind != types.ValueScalar {
			return types.Value{}, types.ErrCoercionFailed
		}
		d, err := c.date(v.Scalar)
		if err != nil {
			return types.Value{}, err
		}
		return types.Scalar(d), nil
	case types.FieldTypeRange:
		if v.Kind != types.ValueRange {
			return types.Value{}, types.ErrCoercionFailed
		}
		return types.Range(strings.TrimSpace(v.Start), strings.TrimSpace(v.End)), nil
	case types.FieldTypeDateRange:
		if v.Kind != types.ValueRange {
			return types.Value{}, types.ErrCoercionFailed
		}
		start, err := c.date(v.Start)
		if err != nil {
			return types.Value{}, err
		}
		end, err := c.date(v.End)
		if err != nil {
			return types.Value{}, err
		}
		return types.Range(start, end), nil
	default:
		return types.Value{}, types.ErrCoercionFailed
	}
}

// coerceBoolean accepts the spellings browsers and older pages produce.
func coerceBoolean(s string) (types.Value, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return types.Bool(true), nil
	case "false", "0", "no", "off":
		return types.Bool(false), nil
	default:
		return types.Value{}, types.ErrCoercionFailed
	}
}

// date parses s with the first matching layout and formats it as DateFormat.
func (c *Coercer) date(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", types.ErrCoercionFailed
	}
	for _, layout := range c.layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateFormat), nil
		}
	}
	return "", types.ErrCoercionFailed
}
