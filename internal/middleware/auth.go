package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/church-api/internal/handler"
	"github.com/jwalitptl/church-api/internal/repository"
	"github.com/jwalitptl/church-api/pkg/auth"
)

const ContextUserID = "user_id"

type AuthMiddleware struct {
	verifier *auth.Verifier
	profiles repository.ProfileRepository
	roles    *cache.Cache
}

func NewAuthMiddleware(verifier *auth.Verifier, profiles repository.ProfileRepository, roleTTL time.Duration) *AuthMiddleware {
	if roleTTL <= 0 {
		roleTTL = 5 * time.Minute
	}
	return &AuthMiddleware{
		verifier: verifier,
		profiles: profiles,
		roles:    cache.New(roleTTL, 2*roleTTL),
	}
}

// Authenticate verifies the access token issued by the auth backend and
// stores the caller's id in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token subject"))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// RequireRole compares the caller's profiles.role with role. Lookups are
// cached per user for the configured TTL.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(ContextUserID)
		id, isUUID := userID.(uuid.UUID)
		if !ok || !isUUID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
			return
		}

		current, err := m.roleOf(c, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("profile not found"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to check role"))
			return
		}
		if current != role {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) roleOf(c *gin.Context, id uuid.UUID) (string, error) {
	key := id.String()
	if role, found := m.roles.Get(key); found {
		return role.(string), nil
	}
	profile, err := m.profiles.Get(c.Request.Context(), id)
	if err != nil {
		return "", err
	}
	m.roles.SetDefault(key, profile.Role)
	return profile.Role, nil
}
