package core

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// OwnershipGate guards post deletion: only the author or a moderator may proceed.
// It must run after AuthenticationGate.
type OwnershipGate struct {
	cfg        Config
	route      *routeMatcher
	posts      PostFinder
	principals PrincipalContext
	moderator  Role
}

func NewOwnershipGate(cfg Config, posts PostFinder, principals PrincipalContext) *OwnershipGate {
	route, _ := newRouteMatcher([]RouteRule{deletePostRoute})
	moderator := cfg.ModeratorRole
	if moderator == "" {
		moderator = RoleModerator
	}
	return &OwnershipGate{
		cfg:        cfg,
		route:      route,
		posts:      posts,
		principals: principals,
		moderator:  moderator,
	}
}

func (g *OwnershipGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.route.Match(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}
		if err := g.authorize(c); err != nil {
			abortWith(c, err)
			return
		}
		c.Next()
	}
}

func (g *OwnershipGate) authorize(c *gin.Context) error {
	postID := lastPathSegment(c.Request.URL.Path)

	ctx, cancel := withLookupTimeout(c.Request.Context(), g.cfg.AuthLookupTimeout)
	post, err := g.posts.FindByID(ctx, postID)
	cancel()
	if errors.Is(err, ErrPostNotFound) || (err == nil && post == nil) {
		return postNotFound(postID)
	}
	if err != nil {
		return err
	}

	name, ok := PrincipalName(c)
	if !ok {
		return unauthenticated()
	}
	if name == post.Author {
		return nil
	}

	principal, ok := g.principals.Get(name)
	if !ok {
		// Evicted from the registry since authentication; the request still carries it.
		principal, _ = CurrentPrincipal(c)
	}
	if principal.Roles.Has(g.moderator) {
		return nil
	}
	return forbidden()
}
