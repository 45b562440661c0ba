package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind enumerates the proctoring signals a client can report.
type ViolationKind string

const (
	ViolationTabHidden      ViolationKind = "tab_hidden"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
)

// ViolationAction is the server's instruction after a violation is counted.
type ViolationAction string

const (
	ViolationActionWarn   ViolationAction = "warn"
	ViolationActionSubmit ViolationAction = "submit"
)

// Violation is a persisted proctoring event.
type Violation struct {
	ID         int64         `json:"id"`
	QuizID     uuid.UUID     `json:"quiz_id"`
	UserID     uuid.UUID     `json:"user_id"`
	Kind       ViolationKind `json:"kind"`
	OccurredAt time.Time     `json:"occurred_at"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ReportViolationRequest is sent when the client loses fullscreen or focus.
type ReportViolationRequest struct {
	Kind ViolationKind `json:"kind" binding:"required,oneof=tab_hidden fullscreen_exit"`
}

// ViolationDecision is the response to a reported violation.
type ViolationDecision struct {
	Count  int64           `json:"count"`
	Action ViolationAction `json:"action"`
}
