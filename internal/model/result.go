package model

import (
	"time"

	"github.com/google/uuid"
)

// Placeholders for results whose quiz or account has been deleted.
const (
	UnknownQuizTitle   = "Unknown Quiz"
	UnknownAccountName = "Unknown"
)

// Result is a scored submission. At most one exists per (quiz, account).
type Result struct {
	ID             uuid.UUID `json:"id"`
	QuizID         uuid.UUID `json:"quiz_id"`
	UserID         uuid.UUID `json:"user_id"`
	Answers        []*int    `json:"answers"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"max_score"`
	ViolationCount int       `json:"violation_count"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ResultRow is a result joined with its quiz title and the submitter's profile.
// Profile fields are empty when the account no longer exists.
type ResultRow struct {
	ID             uuid.UUID `json:"id"`
	QuizID         uuid.UUID `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title"`
	UserID         uuid.UUID `json:"user_id"`
	Name           string    `json:"name,omitempty"`
	RollNumber     string    `json:"roll_number,omitempty"`
	Department     string    `json:"department,omitempty"`
	Section        string    `json:"section,omitempty"`
	Batch          string    `json:"batch,omitempty"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"max_score"`
	ViolationCount int       `json:"violation_count"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmitResultRequest is the student's answer vector. A null entry means unanswered.
type SubmitResultRequest struct {
	Answers    []*int `json:"answers" binding:"required,max=1000"`
	Violations int    `json:"violations" binding:"min=0,max=1000"`
}

// ReviewQuestion pairs a question with the caller's answer for result review.
type ReviewQuestion struct {
	Question
	YourAnswer *int `json:"your_answer"`
	IsCorrect  bool `json:"is_correct"`
}

// ResultDetails is the post-window review of a single result.
type ResultDetails struct {
	Result    *Result          `json:"result"`
	QuizTitle string           `json:"quiz_title"`
	Questions []ReviewQuestion `json:"questions"`
}
