package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmhistory/quizhub-backend/internal/config"
	"github.com/kmhistory/quizhub-backend/internal/middleware"
	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/response"
	"github.com/kmhistory/quizhub-backend/internal/service"
	"github.com/kmhistory/quizhub-backend/internal/validator"
)

// AuthHandler handles registration, login and session endpoints. The JWT is
// delivered in an HttpOnly cookie so the browser client never touches it.
type AuthHandler struct {
	cfg         *config.Config
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(cfg *config.Config, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, authService: authService}
}

// Register godoc
// POST /api/auth/register
// Creates an account and logs the new user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Fail(c, http.StatusConflict, response.DetailEmailTaken)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}

	if err := h.setAuthCookie(c, user); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusCreated, user)
}

// Login godoc
// POST /api/auth/login
// Verifies credentials and sets the auth cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.DetailValidation, fields)
		return
	}

	user, err := h.authService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.DetailInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}

	if err := h.setAuthCookie(c, user); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.DetailInternal)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

// Logout godoc
// POST /api/auth/logout
// Clears the auth cookie. Always succeeds, even for anonymous callers.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
	response.JSON(c, http.StatusOK, gin.H{"detail": "Logged out."})
}

// Me godoc
// GET /api/auth/me
// Returns the authenticated user's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	user, err := h.authService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.DetailUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, user)
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, user *model.User) error {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, token, int(h.cfg.JWTExpiry.Seconds()), "/",
		h.cfg.CookieDomain, h.cfg.CookieSecure, true)
	return nil
}
