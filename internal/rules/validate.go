// internal/rules/validate.go
package rules

import (
	"errors"
	"fmt"

	"github.com/solatis/rulebuilder/internal/catalog"
	"github.com/solatis/rulebuilder/internal/types"
)

/*
 * Tree validation.
 *
 * Checks a collected tree against the catalog it was edited with and against
 * the structural limits, without modifying it:
 *
 *   1. Structural limits (group depth, children per group)
 *   2. Field and operator known to the catalog
 *   3. Value present when the operator's shape needs one
 *   4. Value coercible to the operator's FieldType
 *   5. SELECT values drawn from the choice-list
 *
 * Every problem is reported as an Issue addressed by its path; validation
 * never stops at the first one. A subtree past the depth limit is not descended.
 *
 * Validation is advisory: collection always succeeds and hosts decide what to
 * do with the issues.
 */

// Issue is one validation finding.
type Issue struct {
	// Path addresses the node, e.g. "data[0].groups[2]".
	Path     string
	Field    string
	Operator string
	Err      error
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s: %v", i.Path, i.Err)
}

// Unwrap exposes the sentinel.
func (i Issue) Unwrap() error {
	return i.Err
}

// Validator checks trees against one catalog.
type Validator struct {
	catalog *catalog.Catalog
	coercer *Coercer
}

// NewValidator returns a Validator for cat. dateLayouts are accepted for DATE
// values in addition to the defaults.
func NewValidator(cat *catalog.Catalog, dateLayouts ...string) *Validator {
	return &Validator{catalog: cat, coercer: NewCoercer(dateLayouts...)}
}

// Validate checks nodes against cat with the default date layouts.
func Validate(nodes []types.Node, cat *catalog.Catalog) []Issue {
	return NewValidator(cat).Validate(nodes)
}

// Validate returns every issue found in nodes, in tree order.
func (v *Validator) Validate(nodes []types.Node) []Issue {
	var issues []Issue
	for i, n := range nodes {
		issues = v.node(issues, fmt.Sprintf("data[%d]", i), n, 1)
	}
	return issues
}

// Normalize returns a copy of nodes with every coercible rule value rewritten
// into its canonical form. Values that fail coercion are kept as they are.
func (v *Validator) Normalize(nodes []types.Node) []types.Node {
	out := make([]types.Node, len(nodes))
	for i, n := range nodes {
		out[i] = v.normalize(n)
	}
	return out
}

func (v *Validator) normalize(n types.Node) types.Node {
	if n.IsGroup() {
		groups := make([]types.Node, len(n.Groups))
		for i, c := range n.Groups {
			groups[i] = v.normalize(c)
		}
		n.Groups = groups
		return n
	}
	op, ok := v.operator(n)
	if !ok {
		return n
	}
	if coerced, err := v.coercer.Coerce(n.Value, op.FieldType); err == nil {
		n.Value = coerced
	}
	return n
}

func (v *Validator) node(issues []Issue, path string, n types.Node, depth int) []Issue {
	if !n.IsGroup() {
		return v.rule(issues, path, n)
	}

	if depth > types.MaxTreeDepth {
		return append(issues, Issue{Path: path, Err: types.ErrTreeTooDeep})
	}
	if len(n.Groups) > types.MaxGroupChildren {
		issues = append(issues, Issue{Path: path, Err: types.ErrTooManyChildren})
	}
	for i, c := range n.Groups {
		issues = v.node(issues, fmt.Sprintf("%s.groups[%d]", path, i), c, depth+1)
	}
	return issues
}

func (v *Validator) rule(issues []Issue, path string, n types.Node) []Issue {
	issue := func(err error) []Issue {
		return append(issues, Issue{Path: path, Field: n.Name, Operator: n.Operator, Err: err})
	}

	field, ok := v.catalog.Field(n.Name)
	if !ok {
		return issue(types.ErrUnknownField)
	}
	op, ok := field.Operator(n.Operator)
	if !ok {
		return issue(types.ErrUnknownOperator)
	}

	if n.Value.IsAbsent() {
		if needsValue(op.FieldType) {
			return issue(types.ErrMissingValue)
		}
		return issues
	}

	coerced, err := v.coercer.Coerce(n.Value, op.FieldType)
	if err != nil {
		return issue(err)
	}
	if op.FieldType == types.FieldTypeSelect && !hasChoice(catalog.Choices(field, op), coerced.Scalar) {
		return issue(fmt.Errorf("%w: %q is not a choice", types.ErrShapeMismatch, coerced.Scalar))
	}
	return issues
}

func (v *Validator) operator(n types.Node) (types.OperatorDef, bool) {
	field, ok := v.catalog.Field(n.Name)
	if !ok {
		return types.OperatorDef{}, false
	}
	return field.Operator(n.Operator)
}

// needsValue reports whether rules of fieldType are incomplete without a value.
// BOOLEAN rules always collect a value; NONE never carries one.
func needsValue(ft types.FieldType) bool {
	switch ft {
	case types.FieldTypeText, types.FieldTypeDate, types.FieldTypeRange,
		types.FieldTypeDateRange, types.FieldTypeSelect, types.FieldTypeBoolean:
		return true
	default:
		return false
	}
}

func hasChoice(choices []types.Choice, name string) bool {
	for _, c := range choices {
		if c.Name == name {
			return true
		}
	}
	return false
}

// FirstError returns the first issue as an error, or nil.
func FirstError(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	return issues[0]
}

// HasIssue reports whether any issue wraps target.
func HasIssue(issues []Issue, target error) bool {
	for _, i := range issues {
		if errors.Is(i, target) {
			return true
		}
	}
	return false
}
