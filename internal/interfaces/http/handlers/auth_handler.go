package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/application/services"
	"github.com/08star/my-auth-app/internal/interfaces/http/middleware"
)

// AuthHandler handles account registration and login.
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Register handles account registration.
// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password required")
		return
	}

	resp, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login exchanges credentials for a bearer token.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password required")
		return
	}

	resp, err := h.accounts.Login(c.Request.Context(), &req, c.GetHeader("User-Agent"), middleware.GetClientIP(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout ends the caller's session.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, err := middleware.GetSessionID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Msg: "logged out"})
}

// Me returns the caller's account.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
