package core

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// abortWith halts the chain with the response mapped from err.
// Errors that are not a *GateError are answered with 500.
func abortWith(c *gin.Context, err error) {
	var gateErr *GateError
	if !errors.As(err, &gateErr) {
		log.Printf("[gate] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		gateErr = internalError(err)
	}
	if gateErr.Status == http.StatusForbidden {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	respondError(c, gateErr.Status, gateErr.Code, gateErr.Message)
	c.Abort()
}
