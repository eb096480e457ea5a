package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"canteen/internal/models"
)

const identityKey = "identity"

// AuthGuard validates the bearer token and stores the caller's identity on
// the context. With allowedRoles set, other roles are rejected with 403.
func AuthGuard(secret string, logger *zap.Logger, allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := parseIdentity(c.GetHeader("Authorization"), secret)
		if err != nil {
			logger.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		if len(allowedRoles) > 0 {
			match := false
			for _, r := range allowedRoles {
				if identity.Role == r {
					match = true
					break
				}
			}
			if !match {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

func UserAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	return AuthGuard(secret, logger)
}

func AdminAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	return AuthGuard(secret, logger, models.RoleAdmin)
}

// IdentityFrom returns the identity set by AuthGuard.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingToken = authError("missing token")
	errInvalidToken = authError("invalid token")
	errUnauthorized = authError("unauthorized")
)

func parseIdentity(header, secret string) (models.Identity, error) {
	raw := strings.TrimSpace(header)
	if raw == "" {
		return models.Identity{}, errMissingToken
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Identity{}, errInvalidToken
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, errUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, errUnauthorized
	}

	userIDValue, _ := claims["userId"].(string)
	if strings.TrimSpace(userIDValue) == "" {
		userIDValue, _ = claims["sub"].(string)
	}
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(userIDValue))
	if err != nil {
		return models.Identity{}, errUnauthorized
	}

	role := models.RoleUser
	if r, _ := claims["role"].(string); models.Role(r) == models.RoleAdmin {
		role = models.RoleAdmin
	}
	return models.Identity{UserID: userID, Role: role}, nil
}
