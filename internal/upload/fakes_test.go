package upload

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/object"
	"github.com/abduss/ingest/internal/staging"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func pngPayload(size int) []byte {
	data := make([]byte, size)
	copy(data, pngSignature)
	for i := len(pngSignature); i < size; i++ {
		data[i] = byte(i % 251)
	}
	return data
}

// memObjects is an in-memory durable store standing in for Publisher and Retriever.
type memObjects struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putErr   error
	getErr   error
	putCalls int
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Publish(ctx context.Context, data []byte, res content.Result) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	key := object.NewKey(res.Extension)
	if m.putErr != nil {
		return "", &object.StorageWriteError{Key: key, Err: m.putErr}
	}
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *memObjects) Fetch(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, &object.StorageReadError{Key: key, Err: m.getErr}
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, object.ErrObjectNotFound
	}
	return data, nil
}

func (m *memObjects) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putCalls
}

type fixture struct {
	objects *memObjects
	store   *staging.Store
	service *Service
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := staging.NewStore(filepath.Join(t.TempDir(), "chunks"))
	require.NoError(t, err)

	objects := newMemObjects()
	service := NewService(content.NewValidator(nil), objects, objects, nil)
	return &fixture{
		objects: objects,
		store:   store,
		service: service,
		engine:  NewEngine(service, store, staging.NewLocks(), nil),
	}
}

// cancellingChunks cancels the request context once the completeness check
// runs, as if the client disconnected right after sending the last chunk.
type cancellingChunks struct {
	*staging.Store
	cancel context.CancelFunc
}

func (c *cancellingChunks) Complete(fileID string, totalChunks int) (bool, error) {
	c.cancel()
	return c.Store.Complete(fileID, totalChunks)
}

// gappedChunks reports a complete session whose chunk 2 vanished before reassembly.
type gappedChunks struct {
	mu       sync.Mutex
	cleanups []string
}

func (g *gappedChunks) WriteChunk(ctx context.Context, fileID string, n int, r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

func (g *gappedChunks) Complete(fileID string, totalChunks int) (bool, error) {
	return true, nil
}

func (g *gappedChunks) ReadAndConcatenate(ctx context.Context, fileID string, totalChunks int, limit int64) ([]byte, error) {
	return nil, &staging.MissingChunkError{FileID: fileID, N: 2}
}

func (g *gappedChunks) Cleanup(fileID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleanups = append(g.cleanups, fileID)
	return nil
}

func (g *gappedChunks) cleaned() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.cleanups...)
}

func newGappedFixture(t *testing.T) (*fixture, *gappedChunks) {
	t.Helper()
	f := newFixture(t)
	chunks := &gappedChunks{}
	f.engine = NewEngine(f.service, chunks, staging.NewLocks(), nil)
	return f, chunks
}
