package object

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/abduss/ingest/internal/content"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// Ledger records published objects.
type Ledger interface {
	Create(ctx context.Context, rec Record) (Record, error)
}

// Publisher writes validated payloads to the durable store under fresh keys.
type Publisher struct {
	store  objectStore
	bucket string
	ledger Ledger
	logger *zap.Logger
}

// NewPublisher constructs a publisher. ledger may be nil.
func NewPublisher(store objectStore, bucket string, ledger Ledger, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:  store,
		bucket: bucket,
		ledger: ledger,
		logger: logger,
	}
}

// NewKey forms a storage key from a random UUID and the extension.
func NewKey(ext string) string {
	return fmt.Sprintf("%s.%s", uuid.NewString(), ext)
}

// Publish stores data and returns its key. It does not retry.
func (p *Publisher) Publish(ctx context.Context, data []byte, res content.Result) (string, error) {
	key := NewKey(res.Extension)
	p.logger.Info("uploading object", zap.String("key", key), zap.Int("size", len(data)))

	opts := minio.PutObjectOptions{ContentType: res.ContentType}
	if _, err := p.store.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		p.logger.Error("failed to upload object", zap.String("key", key), zap.Error(err))
		return "", &StorageWriteError{Key: key, Err: err}
	}

	p.record(ctx, key, data, res)
	return key, nil
}

// record appends to the ledger; the object is already durable, so failures are only logged.
func (p *Publisher) record(ctx context.Context, key string, data []byte, res content.Result) {
	if p.ledger == nil {
		return
	}
	sum := sha256.Sum256(data)
	rec := Record{
		Key:         key,
		ContentType: res.ContentType,
		SizeBytes:   int64(len(data)),
		Checksum:    hex.EncodeToString(sum[:]),
	}
	if _, err := p.ledger.Create(ctx, rec); err != nil {
		p.logger.Error("failed to record object", zap.String("key", key), zap.Error(err))
	}
}
