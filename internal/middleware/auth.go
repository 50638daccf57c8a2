package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/scheduler-api/internal/model"
	"github.com/jwalitptl/scheduler-api/pkg/auth"
)

const ContextActor = "actor"

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and stores the caller identity in
// the request context. Every scheduling operation receives this actor
// explicitly; nothing downstream reads ambient session state.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing authorization header",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid authorization format",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		actor, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		c.Set(ContextActor, actor)
		c.Next()
	}
}

// RequireRole aborts unless the authenticated actor holds one of the roles.
func (m *AuthMiddleware) RequireRole(roles ...model.ActorRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor != nil {
			for _, role := range roles {
				if actor.Role == role {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "permission denied",
			TraceID: c.GetString(ContextRequestID),
		})
	}
}

// ActorFromContext returns the authenticated actor, or nil when the request
// was not authenticated.
func ActorFromContext(c *gin.Context) *model.Actor {
	value, exists := c.Get(ContextActor)
	if !exists {
		return nil
	}
	actor, ok := value.(*model.Actor)
	if !ok {
		return nil
	}
	return actor
}
