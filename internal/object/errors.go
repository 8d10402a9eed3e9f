package object

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound signals that the durable store has no object under the key.
	ErrObjectNotFound = errors.New("file not found")
	// ErrStorageWrite signals a failed put against the durable store.
	ErrStorageWrite = errors.New("failed to upload file")
	// ErrStorageRead signals a failed get against the durable store.
	ErrStorageRead = errors.New("failed to read file")
)

// StorageWriteError wraps the cause of a failed put.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("store object %s: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorageWrite.
func (e *StorageWriteError) Is(target error) bool { return target == ErrStorageWrite }

// StorageReadError wraps the cause of a failed get other than absence.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("fetch object %s: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorageRead.
func (e *StorageReadError) Is(target error) bool { return target == ErrStorageRead }
