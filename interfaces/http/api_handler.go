package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IAPIHandler interface {
	ListServices(c *gin.Context)
	ListMethods(c *gin.Context)
	Invoke(c *gin.Context)
}

type APIHandler struct {
	methodUsecase usecase.IMethodUsecase
}

func NewAPIHandler(methodUsecase usecase.IMethodUsecase) IAPIHandler {
	return &APIHandler{methodUsecase: methodUsecase}
}

func (h *APIHandler) ListServices(c *gin.Context) {
	client := middleware.ClientName(c)
	c.JSON(http.StatusOK, gin.H{"services": h.methodUsecase.ListServices(client)})
}

func (h *APIHandler) ListMethods(c *gin.Context) {
	client := middleware.ClientName(c)
	methods, err := h.methodUsecase.ListMethods(client, c.Param("service"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, methods)
}

// Invoke dispatches GET reads and POST writes on a provider method. Arguments
// travel in the query for GET and in the form body (falling back to query) for
// POST, matching what provider callbacks send.
func (h *APIHandler) Invoke(c *gin.Context) {
	client := middleware.ClientName(c)
	args := c.Request.URL.Query()
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err != nil {
			badRequest(c, "Malformed form body")
			return
		}
		for k, vs := range c.Request.PostForm {
			for _, v := range vs {
				args.Add(k, v)
			}
		}
	}

	result, err := h.methodUsecase.Call(c.Request.Context(), client,
		c.Param("service"), c.Param("method"), c.Request.Method, args)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
