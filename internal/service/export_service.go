package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

const resultsSheet = "Results"

var exportHeader = []interface{}{
	"Roll Number", "Name", "Department", "Section", "Batch",
	"Score", "Max Score", "Violations", "Submitted At",
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Export is a rendered spreadsheet ready to be sent as an attachment.
type Export struct {
	Filename string
	Data     []byte
}

// ExportService renders quiz results as .xlsx workbooks.
type ExportService struct {
	results *ResultService
	log     zerolog.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(results *ResultService, log zerolog.Logger) *ExportService {
	return &ExportService{
		results: results,
		log:     log.With().Str("component", "export_service").Logger(),
	}
}

// ExportResults builds the results workbook of a quiz for its author or an admin.
func (s *ExportService) ExportResults(ctx context.Context, quizID uuid.UUID, caller Caller) (*Export, error) {
	quiz, rows, err := s.results.QuizResults(ctx, quizID, caller)
	if err != nil {
		return nil, err
	}

	data, err := renderResults(rows)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("quiz_id", quizID.String()).
		Int("rows", len(rows)).
		Msg("Results exported")

	return &Export{Filename: ExportFilename(quiz.Title), Data: data}, nil
}

// ExportFilename derives the attachment name from a quiz title.
func ExportFilename(title string) string {
	safe := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if safe == "" {
		safe = "quiz"
	}
	return "quiz_results_" + safe + ".xlsx"
}

func renderResults(rows []model.ResultRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := f.SetSheetRow(resultsSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetRowStyle(resultsSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		section := r.Section
		if section == "" {
			section = "N/A"
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			r.RollNumber, r.Name, r.Department, section, r.Batch,
			r.Score, r.MaxScore, r.ViolationCount, r.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(resultsSheet, "A", "I", 18); err != nil {
		return nil, fmt.Errorf("set width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
