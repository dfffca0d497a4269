package builder

// MessageID names a user-facing string. Elements carry ids only; hosts resolve
// them through their own string tables.
type MessageID string

const (
	MsgNone            MessageID = ""
	MsgSubCondition    MessageID = "subCondition"
	MsgEntireCondition MessageID = "entireCondition"
	MsgBooleanTrue     MessageID = "booleanTrue"
	MsgBooleanFalse    MessageID = "booleanFalse"
	MsgAddOrCondition  MessageID = "addOrCondition"
	MsgAddAndCondition MessageID = "addAndCondition"
	MsgAndDivider      MessageID = "andDivider"
	MsgMatch           MessageID = "match"
	MsgOf              MessageID = "of"
	MsgOfTheFollowing  MessageID = "ofTheFollowingRules"
	MsgRangeAnd        MessageID = "rangeAnd"
	MsgMatchAll        MessageID = "matchAll"
	MsgMatchAny        MessageID = "matchAny"
	MsgMatchNone       MessageID = "matchNone"
)

// Labels resolves message ids to display text.
type Labels interface {
	Message(id MessageID) string
}

// LabelMap is a Labels backed by a map. Missing ids resolve to the id itself.
type LabelMap map[MessageID]string

// Message implements Labels.
func (m LabelMap) Message(id MessageID) string {
	if s, ok := m[id]; ok {
		return s
	}
	return string(id)
}

// EnglishLabels is the built-in English string table.
var EnglishLabels = LabelMap{
	MsgSubCondition:    "Add Sub-Condition",
	MsgEntireCondition: "Remove Entire Condition",
	MsgBooleanTrue:     "True",
	MsgBooleanFalse:    "False",
	MsgAddOrCondition:  "Add Or Condition",
	MsgAddAndCondition: "Add And Condition",
	MsgAndDivider:      "AND",
	MsgMatch:           "Match",
	MsgOf:              "of",
	MsgOfTheFollowing:  "of the following rules:",
	MsgRangeAnd:        "and",
	MsgMatchAll:        "All",
	MsgMatchAny:        "Any",
	MsgMatchNone:       "None",
}

// MatchLabel returns the message id labelling a match selector value.
func MatchLabel(match string) MessageID {
	switch match {
	case MatchAll:
		return MsgMatchAll
	case MatchAny:
		return MsgMatchAny
	case MatchNone:
		return MsgMatchNone
	default:
		return MsgNone
	}
}
