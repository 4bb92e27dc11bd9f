package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hospital-booking-server/internal/config"
	"hospital-booking-server/internal/models"
	"hospital-booking-server/internal/utils"
)

const contextUserKey = "currentUser"

// AuthMiddleware creates a middleware for JWT authentication. The token is
// treated as identity proof only: the current role and validation status are
// loaded from the database on every request, so revoking a doctor's
// validation takes effect immediately regardless of outstanding tokens.
func AuthMiddleware(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, errMsg := extractToken(c)
		if errMsg != "" {
			utils.Unauthorized(c, errMsg)
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(token, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.Unauthorized(c, "User no longer exists")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			c.Abort()
			return
		}

		if user.Role == models.RoleDoctor && !user.IsValidated {
			utils.Forbidden(c, "Your account has not been validated yet. Please wait for admin approval.")
			c.Abort()
			return
		}

		c.Set(contextUserKey, &user)
		c.Next()
	}
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the token query parameter. Browser WebSocket clients cannot set
// headers on the upgrade request, so the /ws endpoint authenticates via
// ?token=.
func extractToken(c *gin.Context) (token, errMsg string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if queryToken := c.Query("token"); queryToken != "" {
			return queryToken, ""
		}
		return "", "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			utils.InternalServerError(c, "User not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if user.Role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetUserFromContext returns the authenticated user attached by AuthMiddleware.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
