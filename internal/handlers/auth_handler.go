package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbrief/internal/security"
	"newsbrief/internal/services"
)

const sessionCookie = "session_token"

type AuthHandler struct {
	authService *services.AuthService
	limiter     *security.Limiter
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, limiter *security.Limiter, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, limiter: limiter, log: log}
}

// Register creates a new account
// @Summary Register a new user
// @Accept json
// @Produce json
// @Router /api/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username, email and password are required"})
		return
	}
	if !security.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid email address"})
		return
	}
	if ok, problems := security.ValidatePassword(req.Password); !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: strings.Join(problems, "; ")})
		return
	}

	userID, err := h.authService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUser) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username or email already registered"})
			return
		}
		h.log.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Registration failed"})
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{UserID: userID, Username: req.Username})
}

// Login verifies credentials and issues a session cookie
// @Summary Log in
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	identity, err := h.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrAccountDisabled) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Account is disabled"})
			return
		}
		h.limiter.LogSecurityEvent("failed_login", req.Username, c.ClientIP(), c.Request.UserAgent(), nil)
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid username or password"})
		return
	}

	token, err := h.authService.CreateSession(identity.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.log.Error("session create failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Login failed"})
		return
	}

	c.SetCookie(sessionCookie, token, int((7 * 24 * 3600)), "/", "", false, true)
	c.JSON(http.StatusOK, LoginResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
		Email:    identity.Email,
	})
}

// Logout invalidates the current session
// @Summary Log out
// @Router /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookie)
	if err == nil && token != "" {
		h.authService.InvalidateSession(token)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Logged out"})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
