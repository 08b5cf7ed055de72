package middleware

import (
	"net/http"
	"strings"

	"carequeue/internal/shared/config"
	"carequeue/internal/shared/utils/response"
	"carequeue/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Roles carried in the access token
const (
	RoleParent   = "PARENT"
	RoleProvider = "PROVIDER"
	RoleAdmin    = "ADMIN"
)

const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
)

// JWTAuthWithConfig validates the bearer token and stores the actor in the gin context.
// Tokens are issued elsewhere; this service only verifies them.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "authorization header format must be Bearer {token}")
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
			unauthorized(c, "invalid token type")
			c.Abort()
			return
		}
		if cfg.JWT.Issuer != "" && !claims.VerifyIssuer(cfg.JWT.Issuer, true) {
			unauthorized(c, "invalid token issuer")
			c.Abort()
			return
		}

		rawID, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(rawID)
		if err != nil {
			unauthorized(c, "token subject is not a valid user id")
			c.Abort()
			return
		}
		role, _ := claims["role"].(string)

		c.Set(ctxUserID, userID)
		c.Set(ctxUserRole, strings.ToUpper(role))
		c.Next()
	}
}

func unauthorized(c *gin.Context, reason string) {
	logger.GetDefault().LogAuthFailure(c.Request.Context(), reason, c.ClientIP())
	response.RespondJSON(c, "error", http.StatusUnauthorized, reason, nil, nil)
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := ActorRole(c)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		if !lo.Contains(requiredRoles, role) {
			response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ActorID returns the authenticated user's id.
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// ActorRole returns the authenticated user's role.
func ActorRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserRole)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// SetActor stores an actor directly; used by tests and internal callers.
func SetActor(c *gin.Context, id uuid.UUID, role string) {
	c.Set(ctxUserID, id)
	c.Set(ctxUserRole, role)
}
