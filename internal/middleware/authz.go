package middleware

import (
	"net/http"
	"strings"

	"github.com/mek0124/momentum/internal/models"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const userContextKey = "current_user"

// RequireAuth is the single choke point for protected routes: it resolves
// the bearer token to a stored user and aborts with one generic 401 for
// every failure mode. Handlers read the resolved user from the context and
// never trust a client-supplied identifier.
func RequireAuth(db *gorm.DB, tokens *services.TokenService, users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthenticated(c)
			return
		}

		subject, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		// The subject may have been deleted between issuance and use.
		user, err := users.GetByID(db, subject)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(userContextKey, user)
		c.Set("user_id", user.ID.String())
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthenticated",
		"message": "could not validate credentials",
	})
}

// CurrentUser returns the user resolved by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
