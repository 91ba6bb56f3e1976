package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-gateway/domain/dto"
	httpHandler "social-gateway/interfaces/http"
	"social-gateway/interfaces/middleware"
)

func InitiateRouter(
	apiHandler httpHandler.IAPIHandler,
	dataHandler httpHandler.IDataHandler,
	authHandler httpHandler.IAuthHandler,
	viewHandler httpHandler.IViewHandler,
	streamHandler httpHandler.IStreamHandler,
	statusHandler httpHandler.IStatusHandler,
	healthHandler httpHandler.IHealthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Client"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Client())

	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewHandlerError("Unknown path"))
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewHandlerError("Method not allowed"))
	})

	router.GET("/api", apiHandler.ListServices)
	router.GET("/api/:service", apiHandler.ListMethods)
	router.GET("/api/:service/:method", apiHandler.Invoke)
	router.POST("/api/:service/:method", apiHandler.Invoke)

	router.POST("/data/:service/:method", dataHandler.Write)

	router.GET("/auth", authHandler.Handshake)
	router.POST("/auth", authHandler.Handshake)
	router.GET("/auth/:tail", authHandler.Inspect)
	router.POST("/auth/:tail", authHandler.Callback)
	router.DELETE("/auth/:tail", authHandler.Revoke)

	router.GET("/view", viewHandler.List)
	router.POST("/view", viewHandler.Create)
	router.GET("/view/:name", viewHandler.Get)
	router.DELETE("/view/:name", viewHandler.Delete)
	router.GET("/view/:name/invoke", viewHandler.Invoke)

	router.GET("/stream", streamHandler.Fetch)
	router.GET("/stream/:type", streamHandler.Fetch)

	router.POST("/status", statusHandler.Check)

	router.GET("/healthz", healthHandler.Healthz)

	return router
}
