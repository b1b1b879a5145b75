package core

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
)

var errNoSession = errors.New("no transport session on request")

type principalCtxKey struct{}

const principalKey = "principal"

// setPrincipal attaches p to both the gin context and the request context,
// so plain net/http code downstream can read it too.
func setPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), principalCtxKey{}, p))
}

// PrincipalFromContext returns the principal attached by the authentication gate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// CurrentPrincipal returns the principal attached to the request, if any.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(Principal); ok {
			return p, true
		}
	}
	return PrincipalFromContext(c.Request.Context())
}

// PrincipalName is the request's identity accessor: the login of the authenticated caller.
func PrincipalName(c *gin.Context) (string, bool) {
	p, ok := CurrentPrincipal(c)
	if !ok || p.UserName == "" {
		return "", false
	}
	return p.UserName, true
}
