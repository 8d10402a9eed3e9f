package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/logger"
	"github.com/abduss/ingest/internal/object"
	"github.com/abduss/ingest/internal/staging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const chunkAcceptedMessage = "Chunk uploaded successfully"

// RegisterRoutes mounts the upload, chunked upload and download endpoints.
func RegisterRoutes(router gin.IRoutes, service *Service, engine *Engine, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	handler := &httpHandler{service: service, engine: engine, logger: log}
	router.GET("/", handler.home)
	router.POST("/upload", handler.upload)
	router.POST("/upload_chunk", handler.uploadChunk)
	router.GET("/download", handler.download)
}

type httpHandler struct {
	service *Service
	engine  *Engine
	logger  *zap.Logger
}

func (h *httpHandler) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from file-upload"})
}

func (h *httpHandler) upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file found"})
		return
	}
	if fileHeader.Size > content.MaxSize {
		h.writeError(c, content.ErrInvalidSize)
		return
	}

	data, err := readPart(fileHeader)
	if err != nil {
		h.writeError(c, err)
		return
	}

	key, err := h.service.Upload(c.Request.Context(), data)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_name": key})
}

func (h *httpHandler) uploadChunk(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file found"})
		return
	}
	chunkNumber, err := formInt(c, "chunk_number")
	if err != nil {
		h.writeError(c, err)
		return
	}
	totalChunks, err := formInt(c, "total_chunks")
	if err != nil {
		h.writeError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.writeError(c, fmt.Errorf("open chunk: %w", err))
		return
	}
	defer file.Close()

	ack, err := h.engine.OnChunkReceived(c.Request.Context(), ChunkRequest{
		FileID:      c.PostForm("file_id"),
		ChunkNumber: chunkNumber,
		TotalChunks: totalChunks,
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	if ack.Complete {
		c.JSON(http.StatusOK, gin.H{"file_name": ack.FileName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": chunkAcceptedMessage})
}

func (h *httpHandler) download(c *gin.Context) {
	key := c.Query("file_name")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No file name provided"})
		return
	}

	data, err := h.service.Download(c.Request.Context(), key)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", key))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// writeError maps the error taxonomy onto HTTP responses. Causes are logged,
// never returned to the client.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	log := logger.For(c, h.logger)
	status, detail := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
	case errors.Is(err, object.ErrStorageRead):
		log.Error("object read failed", zap.Error(err))
	default:
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"detail": detail})
}

func statusFor(err error) (int, string) {
	var typeErr *content.UnsupportedTypeError
	switch {
	case errors.As(err, &typeErr):
		return http.StatusBadRequest, typeErr.Error()
	case errors.Is(err, content.ErrInvalidSize):
		return http.StatusBadRequest, "Supported file size is 0 - 2 GB"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, staging.ErrInvalidFileID):
		return http.StatusBadRequest, "invalid file_id"
	case errors.Is(err, object.ErrObjectNotFound), errors.Is(err, object.ErrStorageRead):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, staging.ErrMissingChunk):
		return http.StatusInternalServerError, "Failed to reassemble file"
	case errors.Is(err, object.ErrStorageWrite):
		return http.StatusInternalServerError, "Failed to upload file"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func formInt(c *gin.Context, field string) (int, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidInput, field)
	}
	return value, nil
}

func readPart(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, content.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	return data, nil
}
