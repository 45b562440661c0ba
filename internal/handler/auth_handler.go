package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/middleware"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/response"
	"github.com/stemsi/quizhub-backend/internal/service"
	"github.com/stemsi/quizhub-backend/internal/validator"
)

// AuthHandler handles authentication and self-service profile endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	accountService *service.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates an account. Everyone but admins waits for approval before logging in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	account, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	msg := "Registration successful. Please wait for admin approval."
	if account.IsApproved {
		msg = "Registration successful."
	}
	response.SuccessWithMessage(c, http.StatusCreated, msg, gin.H{"user": account})
}

// Login godoc
// POST /api/v1/auth/login
// Validates roll number + password and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.RollNumber, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Validate godoc
// GET /api/v1/auth/validate
// Returns the identity embedded in the presented token.
func (h *AuthHandler) Validate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": model.Account{
			ID:         claims.UserID,
			RollNumber: claims.RollNumber,
			Name:       claims.Name,
			Role:       claims.Role,
			Department: claims.Department,
			Section:    claims.Section,
			Batch:      claims.Batch,
			IsApproved: true,
		},
	})
}

// UpdateProfile godoc
// PUT /api/v1/auth/profile
// Updates the caller's own profile. A new token is returned when embedded claims changed.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.accountService.UpdateProfile(c.Request.Context(), who.ID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}
