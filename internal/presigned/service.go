package presigned

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

var (
	// ErrInvalidTTL signals a requested lifetime outside the permitted range.
	ErrInvalidTTL = errors.New("invalid ttl")
	// ErrMissingKey signals an empty object key.
	ErrMissingKey = errors.New("no file name provided")
)

type presignClient interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type objectStatter interface {
	Stat(ctx context.Context, key string) (minio.ObjectInfo, error)
}

// Link is a time-limited download URL for a stored object.
type Link struct {
	URL     string    `json:"url"`
	Expires time.Time `json:"expires"`
}

// Service issues presigned GET URLs for published objects.
type Service struct {
	client  presignClient
	objects objectStatter
	bucket  string
	ttl     time.Duration
	maxTTL  time.Duration
	now     func() time.Time
}

// NewService constructs a presigning service.
func NewService(client presignClient, objects objectStatter, bucket string, ttl, maxTTL time.Duration) *Service {
	return &Service{
		client:  client,
		objects: objects,
		bucket:  bucket,
		ttl:     ttl,
		maxTTL:  maxTTL,
		now:     time.Now,
	}
}

// DownloadURL presigns a GET for key. The object must exist; a zero ttl uses the default.
// The URL forces the same attachment headers as the direct download endpoint.
func (s *Service) DownloadURL(ctx context.Context, key string, ttl time.Duration) (Link, error) {
	if key == "" {
		return Link{}, ErrMissingKey
	}
	if ttl == 0 {
		ttl = s.ttl
	}
	if ttl < time.Second || ttl > s.maxTTL {
		return Link{}, fmt.Errorf("%w: must be between 1s and %s", ErrInvalidTTL, s.maxTTL)
	}

	if _, err := s.objects.Stat(ctx, key); err != nil {
		return Link{}, err
	}

	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%s", key))
	params.Set("response-content-type", "application/octet-stream")

	issued := s.now()
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, params)
	if err != nil {
		return Link{}, fmt.Errorf("presign %s: %w", key, err)
	}

	return Link{URL: u.String(), Expires: issued.Add(ttl)}, nil
}
