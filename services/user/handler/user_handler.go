package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/services/auction/helpers"
	"treasure-trove/utils"
)

//go:generate mockgen -source=user_handler.go -destination=mock_service.go -package=handler

type UserServiceInterface interface {
	Signup(ctx context.Context, username, password string) (model.Account, error)
	Login(ctx context.Context, username, password string) (string, error)
	ListUsers(ctx context.Context) ([]model.Account, error)
	LockUser(ctx context.Context, userID string) (model.Account, error)
	UnlockUser(ctx context.Context, userID string) (model.Account, error)
}

type UserHandler struct {
	service UserServiceInterface
}

func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler handles POST /users/signup
func (h *UserHandler) SignupHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SignupHandler", err)
		return
	}

	account, err := h.service.Signup(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		if !helpers.IsRejection(err) {
			utils.Error("SignupHandler: failed to create account", map[string]any{"username": req.Username, "error": err.Error()})
		}
		return
	}

	utils.JSONResponse(c, http.StatusCreated, account, "account created successfully")
	helpers.LogSuccess("SignupHandler", "account created successfully", map[string]any{
		"user_id":  account.UserID,
		"username": account.Username,
	})
}

// LoginHandler handles POST /users/login
func (h *UserHandler) LoginHandler(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"token": token}, "login successful")
}

// MeHandler handles GET /users/me
func (h *UserHandler) MeHandler(c *gin.Context) {
	account, ok := helpers.CallerAccount(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "missing credentials")
		return
	}
	utils.JSONResponse(c, http.StatusOK, account, "account retrieved successfully")
}

// ListUsersHandler handles GET /admin/users
func (h *UserHandler) ListUsersHandler(c *gin.Context) {
	accounts, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Error("ListUsersHandler: failed to list accounts", map[string]any{"error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, accounts, "accounts retrieved successfully")
}

// LockUserHandler handles PUT /admin/users/:user_id/lock
func (h *UserHandler) LockUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	account, err := h.service.LockUser(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		if !helpers.IsRejection(err) {
			utils.Warn("LockUserHandler: failed to lock account", map[string]any{"user_id": userID, "error": err.Error()})
		}
		return
	}

	utils.JSONResponse(c, http.StatusOK, account, "account locked")
	helpers.LogSuccess("LockUserHandler", "account locked", map[string]any{"user_id": userID})
}

// UnlockUserHandler handles PUT /admin/users/:user_id/unlock
func (h *UserHandler) UnlockUserHandler(c *gin.Context) {
	userID := c.Param("user_id")
	account, err := h.service.UnlockUser(c.Request.Context(), userID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
		utils.Warn("UnlockUserHandler: failed to unlock account", map[string]any{"user_id": userID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, account, "account unlocked")
	helpers.LogSuccess("UnlockUserHandler", "account unlocked", map[string]any{"user_id": userID})
}
