package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/middleware"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
)

// errorMapping pairs a service error with its HTTP status and API code.
type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrInvalidToken, http.StatusUnauthorized, response.ErrTokenInvalid},
	{service.ErrPendingApproval, http.StatusForbidden, response.ErrPendingApproval},
	{service.ErrForbidden, http.StatusForbidden, response.ErrForbidden},
	{service.ErrNotQuizAuthor, http.StatusForbidden, response.ErrNotQuizAuthor},
	{service.ErrNotResultOwner, http.StatusForbidden, response.ErrNotResultOwner},
	{service.ErrTooEarly, http.StatusForbidden, response.ErrResultsTooEarly},
	{service.ErrAdminRegistrationDisabled, http.StatusForbidden, response.ErrAdminRegDisabled},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrRollNumberTaken, http.StatusConflict, response.ErrRollNumberTaken},
	{service.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{service.ErrQuizNotStarted, http.StatusBadRequest, response.ErrQuizNotStarted},
	{service.ErrQuizEnded, http.StatusBadRequest, response.ErrQuizEnded},
	{service.ErrUnsupportedFileType, http.StatusBadRequest, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusBadRequest, response.ErrFileTooLarge},
}

// fail writes the response for a service error. Unmapped errors become a 500 and are
// attached to the context so the request logger records them.
func fail(c *gin.Context, err error) {
	c.Header("Cache-Control", "no-store")

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, verr.Fields)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}

	_ = c.Error(err)
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

// failBatch reports a partially failed batch. The failed ids and reasons go in
// error.fields; data carries what succeeded. Reasons outside errorMappings are
// replaced by a generic message and attached to the context for the request logger.
// A 404 is used only when nothing succeeded and every failure is a missing item.
func failBatch(c *gin.Context, berr *service.BatchError, succeeded int, data interface{}) {
	fields := make(map[string]string, len(berr.Failures))
	for id, err := range berr.Failures {
		if mapped(err) {
			fields[id.String()] = err.Error()
			continue
		}
		_ = c.Error(err)
		fields[id.String()] = "internal error"
	}

	status := http.StatusMultiStatus
	code := response.ErrPartialFailure
	if succeeded == 0 && berr.AllNotFound() {
		status, code = http.StatusNotFound, response.ErrNotFound
	}
	response.FailWithData(c, status, code, fields, data)
}

func mapped(err error) bool {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return true
		}
	}
	return false
}

// caller returns the identity of the authenticated request. RequireJWT guarantees claims.
func caller(c *gin.Context) (service.Caller, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Caller{}, false
	}
	return claims.Caller(), true
}

// paramID parses a UUID path parameter, answering 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
