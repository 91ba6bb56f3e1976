package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IDataHandler interface {
	Write(c *gin.Context)
}

type DataHandler struct {
	methodUsecase usecase.IMethodUsecase
}

func NewDataHandler(methodUsecase usecase.IMethodUsecase) IDataHandler {
	return &DataHandler{methodUsecase: methodUsecase}
}

// Write stores a client-supplied datapoint under an arbitrary method name.
func (h *DataHandler) Write(c *gin.Context) {
	client := middleware.ClientName(c)
	if err := c.Request.ParseForm(); err != nil {
		badRequest(c, "Malformed form body")
		return
	}
	args := c.Request.URL.Query()
	for k, vs := range c.Request.PostForm {
		for _, v := range vs {
			args.Add(k, v)
		}
	}

	result, err := h.methodUsecase.WriteDatapoint(c.Request.Context(), client,
		c.Param("service"), c.Param("method"), args)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
