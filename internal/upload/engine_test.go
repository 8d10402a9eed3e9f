package upload

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/abduss/ingest/internal/content"
	"github.com/abduss/ingest/internal/object"
	"github.com/abduss/ingest/internal/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngKeyPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.png$`)

func chunk(fileID string, n, total int, data []byte) ChunkRequest {
	return ChunkRequest{
		FileID:      fileID,
		ChunkNumber: n,
		TotalChunks: total,
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	}
}

func split(data []byte, parts int) [][]byte {
	size := (len(data) + parts - 1) / parts
	var out [][]byte
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		out = append(out, data[start:end])
	}
	return out
}

func assertSessionGone(t *testing.T, f *fixture, fileID string) {
	t.Helper()
	received, err := f.store.Received(fileID)
	require.NoError(t, err)
	assert.Empty(t, received)
}

func TestTwoChunkUploadPublishesAndCleansUp(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(512)
	ctx := context.Background()

	ack, err := f.engine.OnChunkReceived(ctx, chunk("abc", 1, 2, payload[:200]))
	require.NoError(t, err)
	assert.False(t, ack.Complete)

	ack, err = f.engine.OnChunkReceived(ctx, chunk("abc", 2, 2, payload[200:]))
	require.NoError(t, err)
	require.True(t, ack.Complete)
	assert.Regexp(t, pngKeyPattern, ack.FileName)

	stored, err := f.objects.Fetch(ctx, ack.FileName)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
	assertSessionGone(t, f, "abc")
}

func TestReverseOrderReassemblesIdentically(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(300)
	parts := split(payload, 3)
	ctx := context.Background()

	var ack ChunkAck
	var err error
	for _, n := range []int{3, 1, 2} {
		ack, err = f.engine.OnChunkReceived(ctx, chunk("rev", n, 3, parts[n-1]))
		require.NoError(t, err)
		if n != 2 {
			assert.False(t, ack.Complete, "chunk %d must not complete the session", n)
		}
	}

	require.True(t, ack.Complete)
	stored, err := f.objects.Fetch(ctx, ack.FileName)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestSingleChunkUpload(t *testing.T) {
	f := newFixture(t)

	ack, err := f.engine.OnChunkReceived(context.Background(), chunk("one", 1, 1, pngPayload(64)))
	require.NoError(t, err)
	assert.True(t, ack.Complete)
	assertSessionGone(t, f, "one")
}

func TestRejectedTypeCleansUpWithoutPublishing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.OnChunkReceived(ctx, chunk("txt", 1, 2, []byte("hello ")))
	require.NoError(t, err)
	_, err = f.engine.OnChunkReceived(ctx, chunk("txt", 2, 2, []byte("world")))

	require.ErrorIs(t, err, content.ErrUnsupportedType)
	assert.Zero(t, f.objects.calls())
	assertSessionGone(t, f, "txt")
}

func TestPublishFailureStillCleansUp(t *testing.T) {
	f := newFixture(t)
	f.objects.putErr = errors.New("bucket unavailable")

	_, err := f.engine.OnChunkReceived(context.Background(), chunk("fail", 1, 1, pngPayload(64)))

	require.ErrorIs(t, err, object.ErrStorageWrite)
	assertSessionGone(t, f, "fail")
}

func TestResendAfterCompletionDoesNotPublishAgain(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(128)
	ctx := context.Background()

	_, err := f.engine.OnChunkReceived(ctx, chunk("again", 1, 2, payload[:64]))
	require.NoError(t, err)
	ack, err := f.engine.OnChunkReceived(ctx, chunk("again", 2, 2, payload[64:]))
	require.NoError(t, err)
	require.True(t, ack.Complete)

	ack, err = f.engine.OnChunkReceived(ctx, chunk("again", 2, 2, payload[64:]))
	require.NoError(t, err)
	assert.False(t, ack.Complete)
	assert.Equal(t, 1, f.objects.calls())
}

func TestConcurrentChunksPublishExactlyOnce(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(4096)
	parts := split(payload, 8)

	acks := make([]ChunkAck, len(parts))
	var wg sync.WaitGroup
	for i := range parts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ack, err := f.engine.OnChunkReceived(context.Background(), chunk("par", i+1, len(parts), parts[i]))
			assert.NoError(t, err)
			acks[i] = ack
		}(i)
	}
	wg.Wait()

	completed := 0
	var key string
	for _, ack := range acks {
		if ack.Complete {
			completed++
			key = ack.FileName
		}
	}
	require.Equal(t, 1, completed)
	assert.Equal(t, 1, f.objects.calls())

	stored, err := f.objects.Fetch(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
	assertSessionGone(t, f, "par")
}

func TestDuplicateFinalChunksPublishOnce(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(256)
	ctx := context.Background()

	_, err := f.engine.OnChunkReceived(ctx, chunk("dup", 1, 2, payload[:128]))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.OnChunkReceived(ctx, chunk("dup", 2, 2, payload[128:]))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.objects.calls())
}

func TestChunkRequestValidation(t *testing.T) {
	f := newFixture(t)
	body := []byte("x")

	cases := map[string]ChunkRequest{
		"missing file id":  chunk("", 1, 1, body),
		"zero total":       chunk("abc", 1, 0, body),
		"chunk zero":       chunk("abc", 0, 2, body),
		"chunk past total": chunk("abc", 3, 2, body),
		"empty chunk":      chunk("abc", 1, 2, nil),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.OnChunkReceived(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestClientDisconnectDuringFinalizeStillPublishes(t *testing.T) {
	f := newFixture(t)
	payload := pngPayload(512)

	_, err := f.engine.OnChunkReceived(context.Background(), chunk("gone", 1, 2, payload[:256]))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.engine = NewEngine(f.service, &cancellingChunks{Store: f.store, cancel: cancel}, staging.NewLocks(), nil)

	ack, err := f.engine.OnChunkReceived(ctx, chunk("gone", 2, 2, payload[256:]))
	require.NoError(t, err)
	require.True(t, ack.Complete)
	require.Error(t, ctx.Err())

	stored, err := f.objects.Fetch(context.Background(), ack.FileName)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
	assert.Equal(t, 1, f.objects.calls())
	assertSessionGone(t, f, "gone")
}

func TestMissingChunkAtReassemblyCleansUpWithoutPublishing(t *testing.T) {
	f, chunks := newGappedFixture(t)

	_, err := f.engine.OnChunkReceived(context.Background(), chunk("gap", 3, 3, pngPayload(64)))

	var missing *staging.MissingChunkError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 2, missing.N)
	assert.ErrorIs(t, err, staging.ErrMissingChunk)
	assert.Zero(t, f.objects.calls())
	assert.Equal(t, []string{"gap"}, chunks.cleaned())
}
