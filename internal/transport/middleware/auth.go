package middleware

import (
	"net/http"
	"strings"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/pkg/token"
	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID int64
	Role   entity.UserRole
}

func (c Caller) IsStaff() bool { return c.Role.IsStaff() }

type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// Auth reads a bearer token. With required=false a missing header passes
// through anonymously, but a malformed or expired token is still rejected.
func Auth(parser TokenParser, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				abortUnauthorized(c, "authorization required")
				return
			}
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		claims, err := parser.Parse(raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		role, err := entity.ParseUserRole(claims.Role)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(callerKey, Caller{UserID: userID, Role: role})
		c.Next()
	}
}

// RequireStaff lets through staff and admins only. It must run after Auth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			abortUnauthorized(c, "authorization required")
			return
		}
		if !caller.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// RequireRole lets through exactly the given roles.
func RequireRole(roles ...entity.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			abortUnauthorized(c, "authorization required")
			return
		}
		for _, r := range roles {
			if caller.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "insufficient permissions"})
	}
}

func CallerFrom(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}
