package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/middleware"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/mroshb/betpals/pkg/logger"
)

func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error": errors.PublicMessage(err),
		"code":  errors.CodeOf(err),
	})
}

// respondSimpleError serves the friend and search routes, whose clients
// only tell client mistakes (400) from server failures (500).
func respondSimpleError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.CodeOf(err) == errors.ErrCodeInternalError {
		status = http.StatusInternalServerError
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errors.PublicMessage(err)})
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
			"code":  errors.ErrCodeValidation,
		})
		return false
	}
	return true
}

// requireSelf rejects requests that name a user other than the caller.
func requireSelf(c *gin.Context, userID string) bool {
	if userID != middleware.CurrentUserID(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cannot act on behalf of another user"})
		return false
	}
	return true
}
