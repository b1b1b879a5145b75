package core

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const sessionName = "forum_session"

// sessionIDValue is the session value holding the transport session identifier.
const sessionIDValue = "sid"

// SessionMiddleware loads the transport session into the gin context. It never
// writes a cookie itself; ensureSessionID issues the identifier on demand.
func SessionMiddleware(cfg Config, store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, sessionName)
		if session == nil {
			log.Printf("[session] load failed: %v", err)
			respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "session error")
			c.Abort()
			return
		}
		if err != nil {
			// Undecodable cookie (e.g. rotated SESSION_KEY): continue with the fresh session gorilla returned.
			session.Values = map[interface{}]interface{}{}
		}

		c.Set("session", session)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *sessions.Session {
	sessionAny, _ := c.Get("session")
	sess, _ := sessionAny.(*sessions.Session)
	return sess
}

// ensureSessionID returns the transport session identifier, issuing a new one
// and writing the cookie when the request carries none.
func ensureSessionID(c *gin.Context, cfg Config) (string, error) {
	sess := sessionFrom(c)
	if sess == nil {
		return "", errNoSession
	}
	if sid, _ := sess.Values[sessionIDValue].(string); sid != "" {
		return sid, nil
	}
	sid := NewSessionID()
	sess.Values[sessionIDValue] = sid
	applySessionOptions(cfg, sess)
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return "", err
	}
	return sid, nil
}

// transportSessionID returns the identifier already carried by the request, or "".
func transportSessionID(c *gin.Context) string {
	sess := sessionFrom(c)
	if sess == nil {
		return ""
	}
	sid, _ := sess.Values[sessionIDValue].(string)
	return sid
}

// rotateSessionID replaces the transport session identifier on the same cookie
// and returns the new value. The previous identifier is never reused.
func rotateSessionID(c *gin.Context, cfg Config) (string, error) {
	sess := sessionFrom(c)
	if sess == nil {
		return "", errNoSession
	}
	sid := NewSessionID()
	sess.Values[sessionIDValue] = sid
	applySessionOptions(cfg, sess)
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return "", err
	}
	return sid, nil
}

// expireSession drops the transport session cookie.
func expireSession(c *gin.Context, cfg Config) error {
	sess := sessionFrom(c)
	if sess == nil {
		return nil
	}
	sess.Values = map[interface{}]interface{}{}
	applySessionOptions(cfg, sess)
	sess.Options.MaxAge = -1 // Must be set AFTER applySessionOptions to properly delete cookie
	return sess.Save(c.Request, c.Writer)
}

// OriginRefererMiddleware validates Origin/Referer against allowed list and sets CORS headers.
func OriginRefererMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation and non-browser clients send no Origin header.
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Credentials", "true")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
}

func applySessionOptions(cfg Config, session *sessions.Session) {
	if session.Options == nil {
		session.Options = &sessions.Options{}
	}
	session.Options.Path = "/"
	session.Options.MaxAge = int(cfg.SessionTTL.Seconds())
	session.Options.HttpOnly = true
	session.Options.Secure = cfg.CookieSecure
	session.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
