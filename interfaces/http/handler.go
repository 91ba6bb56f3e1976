package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/domain/apperror"
	"social-gateway/domain/dto"
	"social-gateway/infrastructure/logger"
)

// renderError maps an error onto the wire: classified errors carry their fixed
// status, anything else is a 500.
func renderError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		c.JSON(appErr.HTTPStatus(), dto.NewErrorEnvelope(appErr))
		return
	}
	logger.GetLogger().WithField("error", err).Error("Unclassified handler error")
	c.JSON(http.StatusInternalServerError, dto.NewHandlerError("Internal error"))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewHandlerError(message))
}
