package core

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// GateDeps are the collaborators the request gates consume.
type GateDeps struct {
	CookieStore sessions.Store
	Accounts    AccountFinder
	Posts       PostFinder
	Verifier    PasswordVerifier
	Sessions    SessionStore
	Principals  PrincipalContext
}

// NewGateChain returns the ordered middleware list every request goes through:
// transport session, then authentication, then ownership.
func NewGateChain(cfg Config, d GateDeps) ([]gin.HandlerFunc, error) {
	if d.CookieStore == nil || d.Accounts == nil || d.Posts == nil || d.Sessions == nil || d.Principals == nil {
		return nil, errors.New("gate chain: missing dependency")
	}
	verifier := d.Verifier
	if verifier == nil {
		verifier = BcryptVerifier{}
	}
	authn, err := NewAuthenticationGate(cfg, d.Accounts, verifier, d.Sessions, d.Principals)
	if err != nil {
		return nil, err
	}
	ownership := NewOwnershipGate(cfg, d.Posts, d.Principals)

	return []gin.HandlerFunc{
		SessionMiddleware(cfg, d.CookieStore),
		authn.Handler(),
		ownership.Handler(),
	}, nil
}
