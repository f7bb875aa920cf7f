package handler

import (
	"bidbot/internal/account"
	"bidbot/internal/biddingerrors"
	model "bidbot/internal/models"
	"bidbot/internal/session"
	"bidbot/services/bidding/helpers"
	"bidbot/utils"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_account_service.go -package=handler bidbot/services/account/handler AccountServiceInterface

type AccountServiceInterface interface {
	Signup(ctx context.Context, req account.SignupRequest) (model.User, error)
	Login(ctx context.Context, email, password string) (session.Session, model.User, error)
	Logout(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, email string) error
}

type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// SignupHandler handles POST /accounts/signup
func (h *AccountHandler) SignupHandler(c *gin.Context) {
	var req helpers.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SignupHandler", err)
		return
	}

	user, err := h.service.Signup(c.Request.Context(), account.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		helpers.HandleServiceError(c, "SignupHandler", err, map[string]any{"email": req.Email})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToUserResponse(user), "account created successfully")
	helpers.LogSuccess("SignupHandler", "account created successfully", map[string]any{"user_id": user.UserID})
}

// LoginHandler handles POST /accounts/login
func (h *AccountHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	sess, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "LoginHandler", err, map[string]any{"email": req.Email})
		return
	}

	resp := helpers.LoginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
		User:      helpers.ToUserResponse(user),
	}
	utils.JSONResponse(c, http.StatusOK, resp, "logged in successfully")
	helpers.LogSuccess("LoginHandler", "logged in successfully", map[string]any{"user_id": user.UserID})
}

// LogoutHandler handles POST /accounts/logout
func (h *AccountHandler) LogoutHandler(c *gin.Context) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		helpers.HandleServiceError(c, "LogoutHandler", biddingerrors.ErrSessionNotFound, nil)
		return
	}

	if err := h.service.Logout(c.Request.Context(), sess.Token); err != nil {
		helpers.HandleServiceError(c, "LogoutHandler", err, map[string]any{"user_id": sess.UserID})
		return
	}

	utils.JSONMessage(c, http.StatusOK, "logged out successfully")
	helpers.LogSuccess("LogoutHandler", "logged out successfully", map[string]any{"user_id": sess.UserID})
}

// PasswordResetHandler handles POST /accounts/password-reset
func (h *AccountHandler) PasswordResetHandler(c *gin.Context) {
	var req helpers.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PasswordResetHandler", err)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Email); err != nil {
		helpers.HandleServiceError(c, "PasswordResetHandler", err, map[string]any{"email": req.Email})
		return
	}

	utils.JSONMessage(c, http.StatusOK, "a new password has been sent to your email")
	helpers.LogSuccess("PasswordResetHandler", "password reset", map[string]any{"email": req.Email})
}
