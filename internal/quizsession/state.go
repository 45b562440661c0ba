package quizsession

// State is the lifecycle position of a Session.
type State int

const (
	Loading State = iota
	Active
	FullscreenBlocked
	Submitting
	Completed
	Rejected
)

var stateNames = [...]string{
	Loading:           "loading",
	Active:            "active",
	FullscreenBlocked: "fullscreen_blocked",
	Submitting:        "submitting",
	Completed:         "completed",
	Rejected:          "rejected",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Completed || s == Rejected
}

// answering reports whether the attempt is open for input.
func (s State) answering() bool {
	return s == Active || s == FullscreenBlocked
}

type event int

const (
	evStart event = iota
	evBlock
	evResume
	evSubmit
	evAccepted
	evRejected
	evRetryActive
	evRetryBlocked
)

var eventNames = [...]string{
	evStart:        "start",
	evBlock:        "block",
	evResume:       "resume",
	evSubmit:       "submit",
	evAccepted:     "accepted",
	evRejected:     "rejected",
	evRetryActive:  "retry_active",
	evRetryBlocked: "retry_blocked",
}

func (e event) String() string { return eventNames[e] }

// transitions is the complete state machine. Anything not listed is refused.
var transitions = map[State]map[event]State{
	Loading: {
		evStart: Active,
	},
	Active: {
		evBlock:  FullscreenBlocked,
		evSubmit: Submitting,
	},
	FullscreenBlocked: {
		evResume: Active,
		evSubmit: Submitting,
	},
	Submitting: {
		evAccepted:     Completed,
		evRejected:     Rejected,
		evRetryActive:  Active,
		evRetryBlocked: FullscreenBlocked,
	},
}

// NavigationPolicy decides whether an unanswered question blocks Advance.
type NavigationPolicy int

const (
	RequireAnswerToAdvance NavigationPolicy = iota
	FreeNavigation
)
