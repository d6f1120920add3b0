package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/suPer8Hu/brands-digger/internal/common"
	"github.com/suPer8Hu/brands-digger/internal/conversation"
	"github.com/suPer8Hu/brands-digger/internal/httpapi/handlers"
	"github.com/suPer8Hu/brands-digger/internal/httpapi/middleware"
	"github.com/suPer8Hu/brands-digger/internal/log"
	"github.com/suPer8Hu/brands-digger/internal/proxy"
)

// NewRouter mounts the proxy and, when conv is non-nil, the chat API.
func NewRouter(logger zerolog.Logger, conv *conversation.Controller, px *proxy.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(log.GinLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	// relayed proxy bytes go out untouched
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{proxy.Path})))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", func(c *gin.Context) { common.OK(c, gin.H{"pong": true}) })

	if px != nil {
		px.Register(r)
	}
	if conv == nil {
		return r
	}

	h := handlers.NewHandler(conv, logger)
	api := r.Group("/api")
	api.GET("/chats", h.ListChats)
	api.POST("/chats", h.CreateChat)
	api.PUT("/chats/active", h.SelectChat)
	api.GET("/chats/:chat_id", h.GetChat)
	api.DELETE("/chats/:chat_id", h.DeleteChat)
	api.POST("/chats/:chat_id/messages", h.SendMessage)
	api.POST("/chats/:chat_id/suggest-more", h.SuggestMore)
	api.GET("/operations/:op_id", h.GetOperation)
	return r
}
