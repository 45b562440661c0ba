package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "quiz_results_Midterm_1.xlsx", ExportFilename("Midterm 1"))
	assert.Equal(t, "quiz_results_a_b.xlsx", ExportFilename(`a/"b`))
	assert.Equal(t, "quiz_results_quiz.xlsx", ExportFilename("   "))
}

func TestExportResults(t *testing.T) {
	f := newResultFixture(t, 0)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.quiz.ID, student(), &model.SubmitResultRequest{Answers: []*int{ptr(0), ptr(1)}})
	require.NoError(t, err)

	svc := NewExportService(f.svc, nopLog)

	_, err = svc.ExportResults(ctx, f.quiz.ID, Caller{ID: uuid.New(), Role: model.RoleStaff})
	assert.ErrorIs(t, err, ErrNotQuizAuthor)

	out, err := svc.ExportResults(ctx, f.quiz.ID, Caller{ID: f.author, Role: model.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, "quiz_results_Algebra.xlsx", out.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(out.Data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"Roll Number", "Name", "Department", "Section", "Batch",
		"Score", "Max Score", "Violations", "Submitted At",
	}, rows[0])

	row := rows[1]
	require.GreaterOrEqual(t, len(row), 9)
	assert.Equal(t, model.UnknownAccountName, row[1])
	assert.Equal(t, "N/A", row[3])
	assert.Equal(t, "3", row[5])
	assert.Equal(t, "3", row[6])
	assert.Equal(t, "0", row[7])
}
