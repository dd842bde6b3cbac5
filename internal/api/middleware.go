package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/briefs/internal/access"
)

// Identity headers. Authentication happens upstream; the API trusts them.
const (
	HeaderIdentity   = "X-Identity"
	HeaderRole       = "X-Role"
	HeaderWorkspaces = "X-Workspaces"
)

const identityKey = "briefs_identity"

// SetIdentity stores the caller in the gin context.
func SetIdentity(c *gin.Context, id access.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity returns the caller stored by IdentityMiddleware.
func GetIdentity(c *gin.Context) (access.Identity, bool) {
	if v, exists := c.Get(identityKey); exists {
		if id, ok := v.(access.Identity); ok {
			return id, true
		}
	}
	return access.Identity{}, false
}

// IdentityMiddleware builds the caller from the identity headers and rejects
// the request with 401 when they are missing or malformed.
//
// X-Workspaces is a comma-separated list; blank entries are dropped.
func IdentityMiddleware(v *validator.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := access.Identity{
			ID:         strings.TrimSpace(c.GetHeader(HeaderIdentity)),
			Role:       access.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderRole)))),
			Workspaces: splitList(c.GetHeader(HeaderWorkspaces)),
		}
		if err := v.Struct(id); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Error:    "missing or invalid identity headers",
				Code:     "UNAUTHENTICATED",
				Redirect: true,
			})
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// identity is the handler-side accessor. The middleware guarantees presence
// on every /api route.
func identity(c *gin.Context) access.Identity {
	id, _ := GetIdentity(c)
	return id
}
