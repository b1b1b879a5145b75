package core

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthenticationGate resolves the caller of every non-exempt request, from a
// bearer credential or from the session bound to the transport session id.
type AuthenticationGate struct {
	cfg        Config
	exempt     *routeMatcher
	accounts   AccountFinder
	verifier   PasswordVerifier
	sessions   SessionStore
	principals PrincipalContext
}

func NewAuthenticationGate(cfg Config, accounts AccountFinder, verifier PasswordVerifier, sessions SessionStore, principals PrincipalContext) (*AuthenticationGate, error) {
	exempt, err := newRouteMatcher(cfg.ExemptRoutes)
	if err != nil {
		return nil, err
	}
	return &AuthenticationGate{
		cfg:        cfg,
		exempt:     exempt,
		accounts:   accounts,
		verifier:   verifier,
		sessions:   sessions,
		principals: principals,
	}, nil
}

// Handler returns the gin middleware. Exempt routes pass through untouched.
func (g *AuthenticationGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.exempt.Match(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		account, err := g.authenticate(c)
		if err != nil {
			abortWith(c, err)
			return
		}

		principal := PrincipalFromAccount(account)
		setPrincipal(c, principal)
		g.principals.Put(principal)
		c.Next()
	}
}

func (g *AuthenticationGate) authenticate(c *gin.Context) (Account, error) {
	ctx := c.Request.Context()
	tokens := c.Request.Header.Values("Authorization")
	hasToken := len(tokens) > 0
	sessionID, err := ensureSessionID(c, g.cfg)
	if err != nil {
		return Account{}, err
	}

	account, err := g.sessions.Get(ctx, sessionID)
	bound := err == nil
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return Account{}, err
	}

	if !hasToken && !bound {
		return Account{}, unauthenticated()
	}
	if !hasToken {
		return account, nil
	}

	// A credential always starts a fresh session. The old binding is dropped
	// before verification and stays dropped if verification fails.
	if err := g.sessions.Delete(ctx, sessionID); err != nil {
		return Account{}, err
	}

	cred, err := DecodeCredential(tokens[0])
	if err != nil {
		return Account{}, malformedCredential(err)
	}

	lookupCtx, cancel := g.lookupContext(ctx)
	found, err := g.accounts.FindByLogin(lookupCtx, cred.Identifier)
	cancel()
	if errors.Is(err, ErrAccountNotFound) || (err == nil && found == nil) {
		return Account{}, invalidCredentials()
	}
	if err != nil {
		return Account{}, err
	}
	if !g.verifier.Verify(cred.Secret, found.PasswordHash) {
		return Account{}, invalidCredentials()
	}

	newID, err := rotateSessionID(c, g.cfg)
	if err != nil {
		return Account{}, err
	}
	if err := g.sessions.Put(ctx, newID, *found); err != nil {
		return Account{}, err
	}
	return *found, nil
}

func (g *AuthenticationGate) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withLookupTimeout(ctx, g.cfg.AuthLookupTimeout)
}

func withLookupTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
