package types

// ValueKind tags the representation held by a Value.
type ValueKind int

const (
	// ValueAbsent means the rule carries no value.
	ValueAbsent ValueKind = iota
	// ValueScalar holds a single string (text, date, select choice, "true"/"false").
	ValueScalar
	// ValueRange holds a start/end pair.
	ValueRange
)

func (k ValueKind) String() string {
	switch k {
	case ValueScalar:
		return "scalar"
	case ValueRange:
		return "range"
	default:
		return "absent"
	}
}

// Value is the value slot of a rule. The zero Value is absent.
type Value struct {
	Kind   ValueKind
	Scalar string
	Start  string
	End    string
}

// Scalar returns a single-string value.
func Scalar(s string) Value {
	return Value{Kind: ValueScalar, Scalar: s}
}

// Range returns a start/end value.
func Range(start, end string) Value {
	return Value{Kind: ValueRange, Start: start, End: end}
}

// Bool returns the boolean value as its serialized "true"/"false" scalar.
func Bool(b bool) Value {
	if b {
		return Scalar("true")
	}
	return Scalar("false")
}

// IsAbsent reports whether the slot holds nothing.
func (v Value) IsAbsent() bool {
	return v.Kind == ValueAbsent
}
