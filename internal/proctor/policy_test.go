package proctor

import (
	"testing"

	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	assert.Equal(t, model.ViolationActionWarn, Decide(1))
	assert.Equal(t, model.ViolationActionSubmit, Decide(2))
	assert.Equal(t, model.ViolationActionSubmit, Decide(7))
}
