package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

// AccountHandler serves the admin user-lifecycle endpoints.
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// ListPending godoc
// GET /api/v1/users/pending
func (h *AccountHandler) ListPending(c *gin.Context) {
	var f model.AccountFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	accounts, err := h.accountService.ListPending(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts)
}

// ListActive godoc
// GET /api/v1/users
func (h *AccountHandler) ListActive(c *gin.Context) {
	var f model.AccountFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	accounts, err := h.accountService.ListActive(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts)
}

// ListRetired godoc
// GET /api/v1/users/retired
func (h *AccountHandler) ListRetired(c *gin.Context) {
	var f model.AccountFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	retired, err := h.accountService.ListRetired(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, retired)
}

// Approve godoc
// POST /api/v1/users/approve
// Approves pending accounts. Already-approved ids count as zero, not as an error.
func (h *AccountHandler) Approve(c *gin.Context) {
	var req model.AccountIDsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	n, err := h.accountService.Approve(c.Request.Context(), req.UserIDs)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, model.ApproveResponse{Approved: n})
}

// Delete godoc
// DELETE /api/v1/users/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.retire(c, []uuid.UUID{id})
}

// DeleteBatch godoc
// POST /api/v1/users/delete
// Retires each listed account independently and reports per-id failures.
func (h *AccountHandler) DeleteBatch(c *gin.Context) {
	var req model.AccountIDsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.retire(c, req.UserIDs)
}

func (h *AccountHandler) retire(c *gin.Context, ids []uuid.UUID) {
	who, ok := caller(c)
	if !ok {
		return
	}

	deleted, err := h.accountService.Delete(c.Request.Context(), who.ID, ids)
	data := model.DeleteAccountsResponse{Deleted: deleted}

	var berr *service.BatchError
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, data)
	case errors.As(err, &berr) && len(ids) == 1:
		fail(c, berr.Failures[ids[0]])
	case errors.As(err, &berr):
		failBatch(c, berr, len(deleted), data)
	default:
		fail(c, err)
	}
}

// Restore godoc
// POST /api/v1/users/retired/:id/restore
// Recreates the account under its original id with a random password.
func (h *AccountHandler) Restore(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountService.Restore(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.SuccessWithMessage(c, http.StatusOK, "Account restored. Set a new password before handing it back.", gin.H{"user": account})
}

// PermanentDelete godoc
// DELETE /api/v1/users/retired/:id
func (h *AccountHandler) PermanentDelete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.PermanentDelete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ResetPassword godoc
// PUT /api/v1/users/:id/password
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.ResetPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.accountService.UpdatePassword(c.Request.Context(), id, req.Password); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// CreateStaff godoc
// POST /api/v1/users/staff
func (h *AccountHandler) CreateStaff(c *gin.Context) {
	var req model.CreateStaffRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	account, err := h.accountService.CreateStaff(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": account})
}
