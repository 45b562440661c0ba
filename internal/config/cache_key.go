package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizPayloadKey returns the cache key for the student-facing quiz payload (no answer key).
func (r *CacheKeyStruct) QuizPayloadKey(quizID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:payload", quizID)
}

// ViolationCountKey returns the counter key for an account's proctoring violations in a quiz.
func (r *CacheKeyStruct) ViolationCountKey(quizID, accountID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:account:%s:violations", quizID, accountID)
}

var CacheKey = NewCacheKeyStruct()
