package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kmhistory/quizhub-backend/internal/model"
	"github.com/kmhistory/quizhub-backend/internal/response"
	"github.com/kmhistory/quizhub-backend/internal/service"
)

const (
	// AuthCookieName is the HttpOnly cookie carrying the JWT.
	AuthCookieName = "access_token"

	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// RequireUser validates the auth cookie and rejects the request when it is
// missing or invalid.
func RequireUser(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := cookieClaims(c, authService)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.DetailUnauthorized)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// OptionalUser attaches claims when a valid auth cookie is present and lets
// anonymous requests through untouched. Quiz endpoints use this: anyone can
// play, but only known users accumulate history.
func OptionalUser(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := cookieClaims(c, authService); claims != nil {
			c.Set(ContextKeyClaims, claims)
		}
		c.Next()
	}
}

// RequireAdmin validates the auth cookie and additionally requires the ADMIN
// role.
func RequireAdmin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := cookieClaims(c, authService)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.DetailUnauthorized)
			return
		}
		if claims.Role != model.RoleAdmin {
			response.AbortFail(c, http.StatusForbidden, response.DetailForbidden)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func cookieClaims(c *gin.Context, authService *service.AuthService) *service.Claims {
	token, err := c.Cookie(AuthCookieName)
	if err != nil || token == "" {
		return nil
	}
	claims, err := authService.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// GetClaims retrieves the JWT claims from the Gin context, nil when the
// request is anonymous.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// UserID returns the authenticated user's id, nil for anonymous requests.
func UserID(c *gin.Context) *int {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	id := claims.UserID
	return &id
}
