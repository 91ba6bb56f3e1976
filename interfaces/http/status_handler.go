package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/domain/dto"
	"social-gateway/infrastructure/logger"
	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IStatusHandler interface {
	Check(c *gin.Context)
}

type StatusHandler struct {
	statusUsecase usecase.IStatusUsecase
}

func NewStatusHandler(statusUsecase usecase.IStatusUsecase) IStatusHandler {
	return &StatusHandler{statusUsecase: statusUsecase}
}

// Check probes the supplied guids and always answers 200; per-guid failures
// are carried inside the result entries.
func (h *StatusHandler) Check(c *gin.Context) {
	var req dto.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while unmarshal")
		badRequest(c, "Malformed status request")
		return
	}
	if len(req.GUIDs) == 0 {
		badRequest(c, "Missing guids")
		return
	}

	client := middleware.ClientName(c)
	entries := h.statusUsecase.Check(c.Request.Context(), client, req.GUIDs)
	c.JSON(http.StatusOK, dto.StatusResponse{Result: entries})
}
