package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

// ProctorHandler records and lists proctoring violations over plain HTTP.
type ProctorHandler struct {
	proctorService *service.ProctorService
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(proctorService *service.ProctorService) *ProctorHandler {
	return &ProctorHandler{proctorService: proctorService}
}

// Report godoc
// POST /api/v1/quizzes/:id/violations
// Counts a violation and tells the client whether to warn or submit.
func (h *ProctorHandler) Report(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	decision, err := h.proctorService.Report(c.Request.Context(), quizID, who, req.Kind)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, decision)
}

// List godoc
// GET /api/v1/quizzes/:id/violations
func (h *ProctorHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	quizID, ok := paramID(c, "id")
	if !ok {
		return
	}

	violations, err := h.proctorService.List(c.Request.Context(), quizID, who)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, violations)
}
