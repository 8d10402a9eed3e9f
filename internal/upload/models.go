package upload

import "io"

// ChunkRequest is one segment of a chunked upload.
type ChunkRequest struct {
	FileID      string
	ChunkNumber int
	TotalChunks int
	Size        int64
	Body        io.Reader
}

// ChunkAck reports the outcome of a chunk. FileName is set once the
// session has been reassembled and published.
type ChunkAck struct {
	Complete bool
	FileName string
}
