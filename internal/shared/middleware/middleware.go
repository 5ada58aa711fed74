package middleware

import (
	"net/http"
	"strings"

	"busly/internal/shared/config"
	"busly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	// SessionTokenHeader carries the anonymous checkout session token.
	// An outer layer (cookie middleware, mobile client) is responsible
	// for generating and persisting it.
	SessionTokenHeader = "X-Session-Token"

	ContextSessionToken = "session_token"
	ContextUserID       = "user_id"
	ContextUserRole     = "user_role"
)

// RequireSessionToken rejects requests without a session token header.
func RequireSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(SessionTokenHeader))
		if token == "" {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Session token is required", nil, "missing "+SessionTokenHeader+" header")
			c.Abort()
			return
		}
		c.Set(ContextSessionToken, token)
		c.Next()
	}
}

// SessionToken returns the token set by RequireSessionToken.
func SessionToken(c *gin.Context) string {
	return c.GetString(ContextSessionToken)
}

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})

		if err != nil || !token.Valid {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if userID, ok := claims["sub"].(string); ok {
				c.Set(ContextUserID, userID)
			}
			if role, ok := claims["role"].(string); ok {
				c.Set(ContextUserRole, role)
			}
		}

		c.Next()
	}
}

// AdminOnly requires the authenticated user to carry the admin role.
// Must be applied after JWTAuthWithConfig.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != "admin" {
			response.RespondJSON(c, "error", http.StatusForbidden, "Admin access required", nil, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
