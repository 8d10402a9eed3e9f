package staging

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFileID indicates a file_id that cannot name a staging directory.
	ErrInvalidFileID = errors.New("invalid file id")
	// ErrMissingChunk indicates a gap in the staged chunk range.
	ErrMissingChunk = errors.New("missing chunk")
)

// MissingChunkError reports the first absent chunk number found during reassembly.
type MissingChunkError struct {
	FileID string
	N      int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("missing chunk %d for file %s", e.N, e.FileID)
}

// Is reports whether target is ErrMissingChunk.
func (e *MissingChunkError) Is(target error) bool {
	return target == ErrMissingChunk
}
