package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/domain/model"
	"social-gateway/infrastructure/logger"
	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IViewHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Delete(c *gin.Context)
	Invoke(c *gin.Context)
}

type ViewHandler struct {
	viewUsecase usecase.IViewUsecase
}

func NewViewHandler(viewUsecase usecase.IViewUsecase) IViewHandler {
	return &ViewHandler{viewUsecase: viewUsecase}
}

type createViewRequest struct {
	Name       string           `json:"name"`
	Definition []model.ViewStep `json:"definition"`
}

func (h *ViewHandler) List(c *gin.Context) {
	names, err := h.viewUsecase.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"views": names})
}

func (h *ViewHandler) Get(c *gin.Context) {
	view, err := h.viewUsecase.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ViewHandler) Create(c *gin.Context) {
	var req createViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while unmarshal")
		badRequest(c, "Malformed view definition")
		return
	}
	if err := h.viewUsecase.Create(c.Request.Context(), req.Name, req.Definition); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "name": req.Name})
}

func (h *ViewHandler) Delete(c *gin.Context) {
	if err := h.viewUsecase.Delete(c.Request.Context(), c.Param("name")); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Invoke runs the view; the usecase picks the status code so partial results
// surface as 206.
func (h *ViewHandler) Invoke(c *gin.Context) {
	client := middleware.ClientName(c)
	resp, status, err := h.viewUsecase.Invoke(c.Request.Context(), client,
		c.Param("name"), c.QueryArray("guid"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(status, resp)
}
