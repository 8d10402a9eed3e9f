package object

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// Retriever reads published objects back from the durable store.
type Retriever struct {
	store  objectStore
	bucket string
}

// NewRetriever constructs a retriever.
func NewRetriever(store objectStore, bucket string) *Retriever {
	return &Retriever{store: store, bucket: bucket}
}

// Fetch returns the full contents of key. Absence yields ErrObjectNotFound;
// every other store failure yields a StorageReadError.
func (r *Retriever) Fetch(ctx context.Context, key string) ([]byte, error) {
	reader, err := r.store.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classify(key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify(key, err)
	}
	return data, nil
}

// Stat reports object metadata using the same error classification as Fetch.
func (r *Retriever) Stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := r.store.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, classify(key, err)
	}
	return info, nil
}

func classify(key string, err error) error {
	if isNotFound(err) {
		return ErrObjectNotFound
	}
	return &StorageReadError{Key: key, Err: err}
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
