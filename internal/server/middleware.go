package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"treasure-trove/internal/auctionerrors"
	model "treasure-trove/internal/models"
	"treasure-trove/services/auction/helpers"
	"treasure-trove/utils"
)

// Authenticator resolves a session token to a full account. Satisfied by the
// user service.
type Authenticator interface {
	VerifyToken(token string) (string, error)
	GetUserInfo(ctx context.Context, userID string) (model.Account, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// AuthMiddleware verifies the bearer token, loads the caller's account and
// stores it on the request context. Locked accounts are refused here, before
// any handler runs; the core services trust the identity this establishes.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "missing credentials")
			c.Abort()
			return
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "invalid credentials")
			c.Abort()
			return
		}

		account, err := auth.GetUserInfo(c.Request.Context(), userID)
		if err != nil {
			utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, "unknown account")
			c.Abort()
			return
		}
		if account.Locked {
			utils.JSONError(c, http.StatusForbidden, auctionerrors.ErrAccountLocked, "account locked")
			c.Abort()
			return
		}

		c.Set(helpers.AccountContextKey, account)
		c.Next()
	}
}

// AdminOnlyMiddleware allows only admin accounts through. Must run after
// AuthMiddleware.
func AdminOnlyMiddleware(c *gin.Context) {
	account, ok := helpers.CallerAccount(c)
	if !ok || account.Role != model.RoleAdmin {
		utils.JSONError(c, http.StatusForbidden, auctionerrors.ErrInvalidCredentials, "admin access required")
		c.Abort()
		return
	}
	c.Next()
}

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for websocket handshakes.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
