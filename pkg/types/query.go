package types

// Intent categorizes what a natural-language query is trying to accomplish.
// It biases both ranking (structural match signal) and prompt construction.
type Intent string

const (
	IntentFindClass    Intent = "find_class"
	IntentFindMethod   Intent = "find_method"
	IntentFindProperty Intent = "find_property"
	IntentExplain      Intent = "explain"
	IntentHowTo        Intent = "how_to"
	IntentDebug        Intent = "debug"
	IntentGeneral      Intent = "general"
)

// Query is the processed form of a raw natural-language query.
type Query struct {
	Raw      string
	Keywords []string // Deduplicated, lowercased, stopwords removed
	Intent   Intent
}

// TargetKind maps a query intent to the unit kind it is looking for, if any.
// The second return is false for intents that do not target a specific kind.
func (i Intent) TargetKind() (UnitKind, bool) {
	switch i {
	case IntentFindClass:
		return KindClass, true
	case IntentFindMethod:
		return KindMethod, true
	case IntentFindProperty:
		return KindProperty, true
	default:
		return "", false
	}
}
