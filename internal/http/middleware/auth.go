package middleware

import (
	"net/http"
	"strings"

	"tourbooking/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// TokenParser turns a bearer token into the caller identity.
type TokenParser interface {
	ParseAccessToken(token string) (domain.RequestContext, error)
}

func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"code":       code,
		"message":    msg,
		"request_id": GetRequestID(c),
	})
}

// AuthRequired rejects requests without a valid access token.
func AuthRequired(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		rc, err := p.ParseAccessToken(token)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		setCaller(c, rc)
		c.Next()
	}
}

// AuthOptional attaches the caller when a valid token is sent and passes through otherwise.
func AuthOptional(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" {
			if rc, err := p.ParseAccessToken(token); err == nil {
				setCaller(c, rc)
			}
		}
		c.Next()
	}
}

func setCaller(c *gin.Context, rc domain.RequestContext) {
	c.Set(userIDKey, rc.UserID)
	c.Set(userRoleKey, rc.Role)
}

// Caller returns the authenticated identity; zero value for anonymous requests.
func Caller(c *gin.Context) domain.RequestContext {
	return domain.RequestContext{UserID: c.GetInt64(userIDKey), Role: c.GetString(userRoleKey)}
}
