package presigned

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/ingest/internal/logger"
	"github.com/abduss/ingest/internal/object"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/download_url", h.DownloadURL)
}

func (h *Handler) DownloadURL(c *gin.Context) {
	key := c.Query("file_name")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file name provided"})
		return
	}

	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid ttl"})
			return
		}
		ttl = parsed
	}

	link, err := h.service.DownloadURL(c.Request.Context(), key, ttl)
	if err != nil {
		log := logger.For(c, h.logger)
		switch {
		case errors.Is(err, ErrInvalidTTL):
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		case errors.Is(err, object.ErrObjectNotFound), errors.Is(err, object.ErrStorageRead):
			if errors.Is(err, object.ErrStorageRead) {
				log.Error("object stat failed", zap.String("key", key), zap.Error(err))
			}
			c.JSON(http.StatusNotFound, gin.H{"detail": "File not found"})
		default:
			log.Error("presign failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate download url"})
		}
		return
	}

	c.JSON(http.StatusOK, link)
}
