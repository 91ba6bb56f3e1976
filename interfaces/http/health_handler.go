package http

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type HealthHandler struct {
	db    *sql.DB
	redis *redis.Client
}

func NewHealthHandler(db *sql.DB, redisClient *redis.Client) IHealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Healthz reports datastore and queue liveness. 503 when either backend is
// unreachable so load balancers rotate the instance out.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"database": "ok", "redis": "ok"}

	if h.db == nil {
		body["database"] = "unconfigured"
		status = http.StatusServiceUnavailable
	} else if err := h.db.PingContext(c.Request.Context()); err != nil {
		body["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.redis == nil {
		body["redis"] = "unconfigured"
		status = http.StatusServiceUnavailable
	} else if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		body["redis"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, body)
}
