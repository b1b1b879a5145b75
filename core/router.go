package core

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// RouterDeps are the collaborators wired into the HTTP router.
type RouterDeps struct {
	CookieStore sessions.Store
	Accounts    AccountRepository
	Posts       PostRepository
	Sessions    SessionStore
	Principals  PrincipalContext
	Verifier    PasswordVerifier
	StartedAt   time.Time
}

// NewRouter constructs the Gin engine with the gate chain and forum routes wired.
func NewRouter(cfg Config, deps RouterDeps) (*gin.Engine, error) {
	chain, err := NewGateChain(cfg, GateDeps{
		CookieStore: deps.CookieStore,
		Accounts:    deps.Accounts,
		Posts:       deps.Posts,
		Verifier:    deps.Verifier,
		Sessions:    deps.Sessions,
		Principals:  deps.Principals,
	})
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Registered before the gate chain so probes need no session.
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Global middleware: origin/CORS -> session -> authentication -> ownership
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(chain...)

	accountService := NewAccountService(deps.Accounts, deps.Principals)

	account := r.Group("/account")
	{
		account.POST("/register", func(c *gin.Context) {
			var req struct {
				Login     string `json:"login"`
				Password  string `json:"password"`
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			created, err := accountService.Register(c.Request.Context(), req.Login, req.Password, req.FirstName, req.LastName)
			switch {
			case errors.Is(err, ErrInvalidRegistration):
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			case errors.Is(err, ErrAccountExists):
				respondError(c, http.StatusConflict, "CONFLICT", "login already exists")
				return
			case err != nil:
				log.Printf("[account] register %q: %v", req.Login, err)
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create account")
				return
			}
			c.JSON(http.StatusCreated, accountView(created))
		})

		account.POST("/login", func(c *gin.Context) {
			name, _ := PrincipalName(c)
			found, err := deps.Accounts.FindByLogin(c.Request.Context(), name)
			if err != nil {
				abortWith(c, notFoundOr(err, ErrAccountNotFound, "account not found"))
				return
			}
			c.JSON(http.StatusOK, accountView(*found))
		})

		account.POST("/logout", func(c *gin.Context) {
			if err := deps.Sessions.Delete(c.Request.Context(), transportSessionID(c)); err != nil {
				abortWith(c, err)
				return
			}
			if err := expireSession(c, cfg); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		changeRole := func(grant bool) gin.HandlerFunc {
			return func(c *gin.Context) {
				role := ParseRole(c.Param("role"))
				if role == "" {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "role is required")
					return
				}
				updated, err := accountService.ChangeRole(c.Request.Context(), c.Param("login"), role, grant)
				if err != nil {
					abortWith(c, notFoundOr(err, ErrAccountNotFound, "user "+c.Param("login")+" not found"))
					return
				}
				c.JSON(http.StatusOK, gin.H{"login": updated.Login, "roles": updated.Roles.Strings()})
			}
		}
		admin := account.Group("/user/:login/role", RequireRole(RoleAdministrator))
		admin.PUT("/:role", changeRole(true))
		admin.DELETE("/:role", changeRole(false))
	}

	r.GET("/admin/status", RequireRole(RoleAdministrator), func(c *gin.Context) {
		c.JSON(http.StatusOK, CollectSystemStatus(cfg, deps.Sessions, deps.Principals, deps.StartedAt))
	})

	forum := r.Group("/forum")
	{
		forum.POST("/post/:author", func(c *gin.Context) {
			author := c.Param("author")
			if name, _ := PrincipalName(c); name != author {
				abortWith(c, forbidden())
				return
			}
			var req struct {
				Title   string   `json:"title"`
				Content string   `json:"content"`
				Tags    []string `json:"tags"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if strings.TrimSpace(req.Title) == "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "title is required")
				return
			}
			post, err := deps.Posts.Create(c.Request.Context(), author, req.Title, req.Content, req.Tags)
			if err != nil {
				abortWith(c, err)
				return
			}
			c.JSON(http.StatusCreated, post)
		})

		forum.GET("/post/:id", func(c *gin.Context) {
			id := c.Param("id")
			post, err := deps.Posts.FindByID(c.Request.Context(), id)
			if err != nil {
				abortWith(c, postLookupError(err, id))
				return
			}
			c.JSON(http.StatusOK, post)
		})

		forum.DELETE("/post/:id", func(c *gin.Context) {
			id := c.Param("id")
			post, err := deps.Posts.Delete(c.Request.Context(), id)
			if err != nil {
				abortWith(c, postLookupError(err, id))
				return
			}
			c.JSON(http.StatusOK, post)
		})

		forum.GET("/posts/author/:author", func(c *gin.Context) {
			posts, err := deps.Posts.ListByAuthor(c.Request.Context(), c.Param("author"))
			if err != nil {
				abortWith(c, err)
				return
			}
			c.JSON(http.StatusOK, posts)
		})
	}

	return r, nil
}

func accountView(a Account) gin.H {
	return gin.H{
		"login":     a.Login,
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"roles":     a.Roles.Strings(),
	}
}

func postLookupError(err error, id string) error {
	if errors.Is(err, ErrPostNotFound) {
		return postNotFound(id)
	}
	return err
}

// notFoundOr maps sentinel to a 404 with message; other errors pass through.
func notFoundOr(err, sentinel error, message string) error {
	if errors.Is(err, sentinel) {
		return &GateError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message, Err: ErrNotFound}
	}
	return err
}
