package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/metrics"
	"github.com/abduss/ingest/internal/object"
	"go.uber.org/zap"
)

const (
	pathWhole   = "upload"
	pathChunked = "upload_chunk"
)

type publisher interface {
	Publish(ctx context.Context, data []byte, res content.Result) (string, error)
}

type retriever interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Service validates and publishes payloads and serves them back.
// Whole uploads and reassembled chunked uploads both go through accept.
type Service struct {
	validator *content.Validator
	publisher publisher
	retriever retriever
	logger    *zap.Logger
}

// NewService constructs an upload service.
func NewService(validator *content.Validator, pub publisher, ret retriever, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		validator: validator,
		publisher: pub,
		retriever: ret,
		logger:    logger,
	}
}

// Upload validates a whole-file payload and publishes it.
func (s *Service) Upload(ctx context.Context, data []byte) (string, error) {
	return s.accept(ctx, data, pathWhole)
}

// Download returns the stored bytes for key.
func (s *Service) Download(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: no file name provided", ErrInvalidInput)
	}
	return s.retriever.Fetch(ctx, key)
}

func (s *Service) accept(ctx context.Context, data []byte, path string) (string, error) {
	res, err := s.validator.Validate(data)
	if err != nil {
		metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
		return "", err
	}

	key, err := s.publisher.Publish(ctx, data, res)
	if err != nil {
		metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
		return "", err
	}

	metrics.ObjectsPublished.WithLabelValues(path, res.Extension).Inc()
	metrics.BytesPublished.Add(float64(len(data)))
	s.logger.Info("object published",
		zap.String("path", path),
		zap.String("key", key),
		zap.String("content_type", res.ContentType),
		zap.Int("size", len(data)),
	)
	return key, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, content.ErrInvalidSize):
		return "invalid_size"
	case errors.Is(err, content.ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, object.ErrStorageWrite):
		return "storage_write"
	default:
		return "other"
	}
}
