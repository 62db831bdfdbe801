package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

const actorKey = "actor"

// ActorClaims are the JWT claims issued by the external auth service.
type ActorClaims struct {
	UserID      int64  `json:"user_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// authMiddleware validates the Bearer token and stores the resolved Actor
// in the request context. Credential handling lives entirely outside this
// service; the middleware only trusts the shared signing secret.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Code:    "UNAUTHORIZED",
				Error:   "missing bearer token",
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := &ActorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Code:    "UNAUTHORIZED",
				Error:   "invalid token",
			})
			return
		}

		role := claims.Role
		if role == "" {
			role = entity.RoleUser
		}
		c.Set(actorKey, entity.Actor{
			ID:          claims.UserID,
			Role:        role,
			DisplayName: claims.DisplayName,
		})
		c.Next()
	}
}

// currentActor returns the authenticated actor set by authMiddleware.
func currentActor(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}
