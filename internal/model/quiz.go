package model

import (
	"time"

	"github.com/google/uuid"
)

// Quiz is a scheduled, timed set of questions.
type Quiz struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration"`
	CreatedBy       uuid.UUID `json:"created_by"`
	AuthorName      string    `json:"author_name,omitempty"`
	Department      string    `json:"department,omitempty"`
	Batch           string    `json:"batch,omitempty"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// WindowContains reports whether t falls within [StartTime, EndTime].
func (q *Quiz) WindowContains(t time.Time) bool {
	return !t.Before(q.StartTime) && !t.After(q.EndTime)
}

// Question is a multiple-choice question with its answer key.
type Question struct {
	ID            uuid.UUID      `json:"id"`
	QuizID        uuid.UUID      `json:"quiz_id"`
	Position      int            `json:"position"`
	QuestionText  string         `json:"question_text"`
	Options       []string       `json:"options"`
	CorrectAnswer int            `json:"correct_answer"`
	Points        int            `json:"points"`
	Image         *QuestionImage `json:"-"`
	ImageURL      string         `json:"image_url,omitempty"`
}

// QuestionImage is an attached image held either inline or in object storage.
type QuestionImage struct {
	Data        []byte
	ContentType string
	Key         string
}

// QuizWithQuestions is the full quiz returned to authors.
type QuizWithQuestions struct {
	Quiz
	Questions []Question `json:"questions"`
}

// QuestionForStudent is a question without the correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	Position     int       `json:"position"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	Points       int       `json:"points"`
	ImageURL     string    `json:"image_url,omitempty"`
}

// QuizPayload is the Redis-cached quiz served to students.
type QuizPayload struct {
	ID              uuid.UUID            `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         time.Time            `json:"end_time"`
	DurationMinutes int                  `json:"duration"`
	Department      string               `json:"department,omitempty"`
	Batch           string               `json:"batch,omitempty"`
	Questions       []QuestionForStudent `json:"questions"`
}

// StudentQuizView wraps the payload with the server clock so clients can
// compute the countdown without trusting their own time.
type StudentQuizView struct {
	Quiz       *QuizPayload `json:"quiz"`
	ServerTime time.Time    `json:"server_time"`
}

// AvailableQuizzes is the student lobby listing.
type AvailableQuizzes struct {
	Quizzes    []Quiz    `json:"quizzes"`
	ServerTime time.Time `json:"server_time"`
}

// CreateQuizForm is the multipart form for quiz creation. Questions holds a JSON array
// of QuestionInput; images arrive as "question_images" file parts.
type CreateQuizForm struct {
	Title       string    `form:"title" binding:"required,notblank,max=255"`
	Description string    `form:"description" binding:"omitempty,max=5000"`
	Questions   string    `form:"questions" binding:"required"`
	StartTime   time.Time `form:"start_time" binding:"required"`
	EndTime     time.Time `form:"end_time" binding:"required,gtfield=StartTime"`
	Duration    int       `form:"duration" binding:"required,min=1,max=1440"`
	Department  string    `form:"department" binding:"omitempty,max=255"`
	Batch       string    `form:"batch" binding:"omitempty,max=64"`
}

// QuestionInput is one entry of CreateQuizForm.Questions.
type QuestionInput struct {
	QuestionText  string   `json:"question_text" binding:"required,notblank"`
	Options       []string `json:"options" binding:"required,min=2,max=10,dive,required,notblank"`
	CorrectAnswer *int     `json:"correct_answer" binding:"required,min=0"`
	Points        *int     `json:"points" binding:"omitempty,min=0,max=1000"`
	ImageIndex    *int     `json:"image_index" binding:"omitempty,min=0"`
}

// NewQuiz is the validated input handed from the handler to the quiz service.
type NewQuiz struct {
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Department      string
	Batch           string
	Questions       []QuestionInput
	Images          []UploadedImage
}

// UploadedImage is a buffered multipart attachment.
type UploadedImage struct {
	Filename string
	Size     int64
	Data     []byte
}
