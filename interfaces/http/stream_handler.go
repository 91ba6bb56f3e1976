package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-gateway/interfaces/middleware"
	"social-gateway/usecase"
)

type IStreamHandler interface {
	Fetch(c *gin.Context)
}

type StreamHandler struct {
	streamUsecase usecase.IStreamUsecase
}

func NewStreamHandler(streamUsecase usecase.IStreamUsecase) IStreamHandler {
	return &StreamHandler{streamUsecase: streamUsecase}
}

// Fetch merges the feeds of the supplied guids. /stream/:type narrows to one
// activity type.
func (h *StreamHandler) Fetch(c *gin.Context) {
	client := middleware.ClientName(c)
	guids := c.QueryArray("guid")
	if len(guids) == 0 {
		badRequest(c, "Missing guid")
		return
	}
	opts, ok := streamOptions(c)
	if !ok {
		return
	}

	resp, err := h.streamUsecase.Fetch(c.Request.Context(), client, guids, opts)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func streamOptions(c *gin.Context) (usecase.StreamOptions, bool) {
	opts := usecase.StreamOptions{Type: c.Param("type")}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"num", &opts.Num},
		{"echo", &opts.Echo},
		{"show_private", &opts.ShowPrivate},
	} {
		raw := c.Query(field.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Malformed "+field.name)
			return opts, false
		}
		*field.dst = v
	}
	if raw := c.Query("timestamp"); raw != "" {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "Malformed timestamp")
			return opts, false
		}
		opts.Timestamp = ts
	}
	if raw := c.Query("forward"); raw != "" {
		opts.Forward = raw == "1" || raw == "true"
	}
	return opts, true
}
