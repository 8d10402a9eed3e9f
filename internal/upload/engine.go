package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/metrics"
	"github.com/abduss/ingest/internal/staging"
	"go.uber.org/zap"
)

type chunkStore interface {
	WriteChunk(ctx context.Context, fileID string, n int, r io.Reader) (int64, error)
	Complete(fileID string, totalChunks int) (bool, error)
	ReadAndConcatenate(ctx context.Context, fileID string, totalChunks int, limit int64) ([]byte, error)
	Cleanup(fileID string) error
}

// Engine drives chunked uploads: it stages chunks, detects when a session
// holds every chunk, and hands the reassembled bytes to the Service.
//
// Chunk writes for one file_id share a read lock and may run in parallel.
// Finalization takes the exclusive lock, so at most one reassembly runs per
// file_id and cleanup never races a write.
//
// Once a session is complete, finalization is detached from the request
// context: a client that disconnects mid-reassembly does not discard a full
// set of staged chunks. A chunk resent after its session was published opens
// a new session that is left for the Sweeper to remove.
type Engine struct {
	service *Service
	chunks  chunkStore
	locks   *staging.Locks
	logger  *zap.Logger
}

// NewEngine constructs a reassembly engine.
func NewEngine(service *Service, chunks chunkStore, locks *staging.Locks, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = staging.NewLocks()
	}
	return &Engine{
		service: service,
		chunks:  chunks,
		locks:   locks,
		logger:  logger,
	}
}

// OnChunkReceived stages one chunk and, once all chunks 1..TotalChunks are
// present, reassembles, validates and publishes the file.
func (e *Engine) OnChunkReceived(ctx context.Context, req ChunkRequest) (ChunkAck, error) {
	if err := req.validate(); err != nil {
		return ChunkAck{}, err
	}
	log := e.logger.With(
		zap.String("file_id", req.FileID),
		zap.Int("chunk_number", req.ChunkNumber),
		zap.Int("total_chunks", req.TotalChunks),
	)

	if err := e.stage(ctx, req); err != nil {
		return ChunkAck{}, err
	}
	metrics.ChunksReceived.Inc()

	unlock := e.locks.Lock(req.FileID)
	defer unlock()

	complete, err := e.chunks.Complete(req.FileID, req.TotalChunks)
	if err != nil {
		return ChunkAck{}, fmt.Errorf("check session %s: %w", req.FileID, err)
	}
	if !complete {
		if staging.IsFinal(req.ChunkNumber, req.TotalChunks) {
			log.Info("final chunk arrived before earlier chunks, waiting")
		} else {
			log.Debug("chunk staged")
		}
		return ChunkAck{}, nil
	}

	key, err := e.finalize(context.WithoutCancel(ctx), req.FileID, req.TotalChunks, log)
	if err != nil {
		return ChunkAck{}, err
	}
	return ChunkAck{Complete: true, FileName: key}, nil
}

func (e *Engine) stage(ctx context.Context, req ChunkRequest) error {
	unlock := e.locks.RLock(req.FileID)
	defer unlock()

	if _, err := e.chunks.WriteChunk(ctx, req.FileID, req.ChunkNumber, req.Body); err != nil {
		return fmt.Errorf("stage chunk %d of %s: %w", req.ChunkNumber, req.FileID, err)
	}
	return nil
}

// finalize must be called with the exclusive lock for fileID held.
func (e *Engine) finalize(ctx context.Context, fileID string, totalChunks int, log *zap.Logger) (string, error) {
	defer func() {
		if err := e.chunks.Cleanup(fileID); err != nil {
			log.Warn("staging cleanup failed", zap.Error(err))
		}
	}()

	log.Info("reassembling upload")
	data, err := e.chunks.ReadAndConcatenate(ctx, fileID, totalChunks, content.MaxSize)
	if err != nil {
		log.Error("reassembly failed", zap.Error(err))
		return "", err
	}

	key, err := e.service.accept(ctx, data, pathChunked)
	if err != nil {
		log.Warn("reassembled upload not published", zap.Error(err))
		return "", err
	}
	return key, nil
}

func (r ChunkRequest) validate() error {
	switch {
	case r.FileID == "":
		return fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	case r.TotalChunks < 1:
		return fmt.Errorf("%w: total_chunks must be positive", ErrInvalidInput)
	case r.ChunkNumber < 1 || r.ChunkNumber > r.TotalChunks:
		return fmt.Errorf("%w: chunk_number must be between 1 and %d", ErrInvalidInput, r.TotalChunks)
	case r.Size <= 0:
		return fmt.Errorf("%w: chunk is empty", ErrInvalidInput)
	case r.Size > content.MaxSize:
		return content.ErrInvalidSize
	case r.Body == nil:
		return fmt.Errorf("%w: chunk body is required", ErrInvalidInput)
	}
	return nil
}
