package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/abduss/ingest/internal/content"
)

const (
	chunkSuffix   = ".part"
	tempPattern   = ".incoming-*"
	dirPerm       = 0o750
	maxFileIDSize = 128
)

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store stages upload chunks on local disk, one directory per file_id.
type Store struct {
	root      string
	removeAll func(path string) error
}

// NewStore prepares the staging root directory.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("staging root is required")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("create staging root: %w", err)
	}
	return &Store{root: root, removeAll: os.RemoveAll}, nil
}

// Root returns the staging root directory.
func (s *Store) Root() string {
	return s.root
}

// IsFinal reports whether chunkNumber is the last ordinal of the session.
func IsFinal(chunkNumber, totalChunks int) bool {
	return chunkNumber == totalChunks
}

// WriteChunk persists a chunk, replacing any earlier bytes for the same number.
// The bytes become visible atomically, so readers never observe a partial chunk.
func (s *Store) WriteChunk(ctx context.Context, fileID string, n int, r io.Reader) (int64, error) {
	dir, err := s.sessionDir(fileID)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("chunk number %d out of range", n)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return 0, fmt.Errorf("create temp chunk: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write chunk %d: %w", n, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync chunk %d: %w", n, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close chunk %d: %w", n, err)
	}
	if err := os.Rename(tmpName, chunkPath(dir, n)); err != nil {
		return 0, fmt.Errorf("commit chunk %d: %w", n, err)
	}
	committed = true
	return written, nil
}

// HasChunk reports whether chunk n is staged for fileID.
func (s *Store) HasChunk(fileID string, n int) (bool, error) {
	dir, err := s.sessionDir(fileID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(chunkPath(dir, n))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat chunk %d: %w", n, err)
}

// Received lists the staged chunk numbers for fileID in ascending order.
func (s *Store) Received(fileID string) ([]int, error) {
	dir, err := s.sessionDir(fileID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list session dir: %w", err)
	}

	var numbers []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), chunkSuffix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil || n < 1 {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// Complete reports whether every chunk in 1..totalChunks is staged.
func (s *Store) Complete(fileID string, totalChunks int) (bool, error) {
	if totalChunks < 1 {
		return false, nil
	}
	received, err := s.Received(fileID)
	if err != nil {
		return false, err
	}
	next := 1
	for _, n := range received {
		if n == next {
			next++
		}
		if next > totalChunks {
			return true, nil
		}
	}
	return false, nil
}

// ReadAndConcatenate joins chunks 1..totalChunks in ascending order. It fails
// with a MissingChunkError on the first gap and with content.ErrInvalidSize as
// soon as the combined size exceeds limit.
func (s *Store) ReadAndConcatenate(ctx context.Context, fileID string, totalChunks int, limit int64) ([]byte, error) {
	dir, err := s.sessionDir(fileID)
	if err != nil {
		return nil, err
	}

	var total int64
	for n := 1; n <= totalChunks; n++ {
		info, err := os.Stat(chunkPath(dir, n))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &MissingChunkError{FileID: fileID, N: n}
			}
			return nil, fmt.Errorf("stat chunk %d: %w", n, err)
		}
		total += info.Size()
		if total > limit {
			return nil, content.ErrInvalidSize
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, total))
	for n := 1; n <= totalChunks; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := appendChunk(buf, chunkPath(dir, n)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &MissingChunkError{FileID: fileID, N: n}
			}
			return nil, fmt.Errorf("read chunk %d: %w", n, err)
		}
		if int64(buf.Len()) > limit {
			return nil, content.ErrInvalidSize
		}
	}
	return buf.Bytes(), nil
}

// Cleanup removes every staged artifact for fileID. Removing an absent session is not an error.
func (s *Store) Cleanup(fileID string) error {
	dir, err := s.sessionDir(fileID)
	if err != nil {
		return err
	}
	if err := s.removeAll(dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}

func (s *Store) sessionDir(fileID string) (string, error) {
	if err := checkFileID(fileID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, fileID), nil
}

func checkFileID(fileID string) error {
	if fileID == "" || len(fileID) > maxFileIDSize || fileID == "." || fileID == ".." {
		return ErrInvalidFileID
	}
	if !fileIDPattern.MatchString(fileID) {
		return ErrInvalidFileID
	}
	return nil
}

func chunkPath(dir string, n int) string {
	return filepath.Join(dir, strconv.Itoa(n)+chunkSuffix)
}

func appendChunk(buf *bytes.Buffer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = buf.ReadFrom(f)
	return err
}
