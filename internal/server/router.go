package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/logging"
)

// NewRouter wires the handlers into a gin engine.
func NewRouter(h *Handler, auth *Authenticator, logger *zap.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(logger))
	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:       time.Hour,
		}))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/test", h.GetTest)

	authed := r.Group("/", auth.RequireAuth())
	authed.POST("/test", h.PostTest)
	authed.POST("/get_score", h.GetScore)
	authed.GET("/me/result/:date", h.GetResult)
	authed.GET("/me/result/:date/:q_num", h.GetQuestionResult)
	authed.GET("/me/session/:date", h.GetSession)

	return r
}
