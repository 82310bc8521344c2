package handlers

import (
	"errors"

	"github.com/mek0124/momentum/internal/apperror"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the wire. Typed errors carry
// their own status and a safe message; anything untyped becomes a
// generic 500 so internals never leak.
func respondError(c *gin.Context, err error) {
	status := apperror.StatusCode(err)

	message := "an unexpected error occurred"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Kind != apperror.Internal {
		message = appErr.Message
	}

	c.JSON(status, gin.H{"error": message})
}
