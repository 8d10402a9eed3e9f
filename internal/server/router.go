package server

import (
	"github.com/abduss/ingest/internal/config"
	"github.com/abduss/ingest/internal/logger"
	"github.com/abduss/ingest/internal/metrics"
	"github.com/abduss/ingest/internal/presigned"
	"github.com/abduss/ingest/internal/upload"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config        config.Config
	Logger        *zap.Logger
	Readiness     []Probe
	UploadService *upload.Service
	Engine        *upload.Engine
	Presigner     *presigned.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))
	router.Use(metrics.Middleware())
	if deps.Config.Server.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = deps.Config.Server.MaxMultipartMemory
	}

	registerHealthRoutes(router, deps.Readiness)
	if deps.Config.Metrics.PrometheusPath != "" {
		metrics.Register(router, deps.Config.Metrics.PrometheusPath)
	}

	if deps.UploadService != nil && deps.Engine != nil {
		upload.RegisterRoutes(router, deps.UploadService, deps.Engine, deps.Logger)
	}
	if deps.Presigner != nil {
		presigned.NewHandler(deps.Presigner, deps.Logger).RegisterRoutes(router)
	}

	return router
}
