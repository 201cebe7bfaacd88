package address

// State is the autocomplete state machine position.
//
//	Idle -> AwaitingSuggestions   input reached the minimum length
//	AwaitingSuggestions -> SuggestionsVisible   debounced query answered
//	any -> Selecting              a suggestion was chosen
//	Selecting -> Idle             cooldown expired
//	any -> Idle                   input cleared or below the minimum length
type State int

const (
	Idle State = iota
	AwaitingSuggestions
	SuggestionsVisible
	Selecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingSuggestions:
		return "awaiting_suggestions"
	case SuggestionsVisible:
		return "suggestions_visible"
	case Selecting:
		return "selecting"
	default:
		return "unknown"
	}
}
