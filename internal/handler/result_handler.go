package handler

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultHandler handles submissions, result listings and exports.
type ResultHandler struct {
	resultService *service.ResultService
	exportService *service.ExportService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, exportService *service.ExportService) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		exportService: exportService,
	}
}

// Submit godoc
// POST /api/v1/quizzes/:id/submit
// Scores the answer vector. A second submission for the same quiz is refused with 409.
func (h *ResultHandler) Submit(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SubmitResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.resultService.Submit(c.Request.Context(), quizID, who, &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// List godoc
// GET /api/v1/results
func (h *ResultHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	rows, err := h.resultService.List(c.Request.Context(), who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// Details godoc
// GET /api/v1/results/:id
// Owner-only review with the answer key, available once the quiz has ended.
func (h *ResultHandler) Details(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	details, err := h.resultService.Details(c.Request.Context(), id, who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, details)
}

// QuizResults godoc
// GET /api/v1/quizzes/:id/results
func (h *ResultHandler) QuizResults(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	quiz, rows, err := h.resultService.QuizResults(c.Request.Context(), id, who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"quiz": quiz, "results": rows})
}

// Export godoc
// GET /api/v1/quizzes/:id/results/export
// Downloads the results as an .xlsx workbook.
func (h *ResultHandler) Export(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	export, err := h.exportService.ExportResults(c.Request.Context(), id, who)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, xlsxContentType, export.Data)
}
