package websocket

import "github.com/stemsi/quizhub-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope carries every client message. Kind is set for violations only.
type RequestEnvelope struct {
	Action Action              `json:"action"`
	Kind   model.ViolationKind `json:"kind,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventWarning     Event = "warning"
	EventForceSubmit Event = "force_submit"
	EventPong        Event = "pong"
)

// DecisionResponse answers a violation with a warning or a forced submit.
type DecisionResponse struct {
	Event Event `json:"event"`
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// DecisionEvent maps a proctoring action onto the event sent to the client.
func DecisionEvent(action model.ViolationAction) Event {
	if action == model.ViolationActionSubmit {
		return EventForceSubmit
	}
	return EventWarning
}
