package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rewear/swap-ledger/internal/models"
	"github.com/rewear/swap-ledger/internal/service"
)

const actorKey = "actor"

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// AuthMiddleware returns a Gin middleware that resolves the request's actor
// from a bearer token signed with secret
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authentication required")
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid token format")
			return
		}

		// Parse the JWT token
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token claims")
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			abortUnauthorized(c, "Invalid user ID in token")
			return
		}

		c.Set(actorKey, models.Actor{AccountID: userID, IsAdmin: hasAdminClaim(claims)})
		c.Next()
	}
}

// hasAdminClaim accepts a single role claim or a roles list
func hasAdminClaim(claims jwt.MapClaims) bool {
	if role, ok := claims["role"].(string); ok && strings.EqualFold(role, service.AdminRole) {
		return true
	}
	roles, ok := claims["roles"].([]interface{})
	if !ok {
		return false
	}
	for _, r := range roles {
		if s, ok := r.(string); ok && (s == "admin" || s == "ADMIN") {
			return true
		}
	}
	return false
}

// AdminOnly rejects requests whose actor lacks the admin role
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// actorFrom returns the identity attached by AuthMiddleware
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}
