package types

import "errors"

// Sentinel errors for rulebuilder operations.
var (
	// ErrElementNotFound indicates an edit addressed an element that does not exist.
	ErrElementNotFound = errors.New("element not found")

	// ErrNotGroup indicates an edit that needs a group frame was given another element.
	ErrNotGroup = errors.New("element is not a condition group")

	// ErrNotRule indicates an edit that needs a rule row was given another element.
	ErrNotRule = errors.New("element is not a rule")

	// ErrNotRemovable indicates an attempt to remove a group that is not an alternative top-level group.
	ErrNotRemovable = errors.New("condition group cannot be removed as a whole")

	// ErrNotQuantitative indicates a top-level group was requested for a simple tree.
	ErrNotQuantitative = errors.New("tree is not in quantitative mode")

	// ErrUnknownField indicates a field name missing from the catalog.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownOperator indicates an operator the rule's field does not declare.
	ErrUnknownOperator = errors.New("operator not valid for field")

	// ErrShapeMismatch indicates a host input that the installed value widget cannot hold.
	ErrShapeMismatch = errors.New("value does not fit the installed value shape")

	// ErrTreeTooDeep indicates a tree exceeds MaxTreeDepth.
	ErrTreeTooDeep = errors.New("condition tree exceeds maximum depth")

	// ErrTooManyChildren indicates a group exceeds MaxGroupChildren.
	ErrTooManyChildren = errors.New("condition group has too many children")

	// ErrCoercionFailed indicates a value could not be coerced to its declared type.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrMissingValue indicates a rule whose operator expects a value but carries none.
	ErrMissingValue = errors.New("rule has no value")

	// ErrSessionNotFound indicates an unknown, closed or expired editing session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionLimit indicates the server already holds max_sessions sessions.
	ErrSessionLimit = errors.New("too many open sessions")

	// ErrInvalidCatalog indicates a catalog document that cannot be resolved.
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Resource limits enforced on trees handed back to hosts.
const (
	// MaxTreeDepth bounds group nesting; deeper trees are rejected by validation.
	MaxTreeDepth = 16

	// MaxGroupChildren bounds the number of children of a single group.
	MaxGroupChildren = 256
)
