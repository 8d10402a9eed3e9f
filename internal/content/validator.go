package content

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize is the largest payload accepted, in bytes.
const MaxSize int64 = 2 * 1024 * 1024 * 1024

var allowed = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"application/pdf": "pdf",
}

// Sniffer reports the content type of raw bytes.
type Sniffer func(data []byte) string

// Result describes an accepted payload.
type Result struct {
	ContentType string
	Extension   string
}

// Validator decides whether a payload may be published and under which extension.
type Validator struct {
	sniff Sniffer
}

// NewValidator constructs a validator. A nil sniffer falls back to DetectType.
func NewValidator(sniff Sniffer) *Validator {
	if sniff == nil {
		sniff = DetectType
	}
	return &Validator{sniff: sniff}
}

// Validate checks the size bound and the sniffed content type of data.
func (v *Validator) Validate(data []byte) (Result, error) {
	if err := CheckSize(int64(len(data))); err != nil {
		return Result{}, err
	}

	contentType := baseType(v.sniff(data))
	ext, ok := allowed[contentType]
	if !ok {
		return Result{}, &UnsupportedTypeError{Detected: contentType}
	}
	return Result{ContentType: contentType, Extension: ext}, nil
}

// CheckSize enforces 0 < size <= MaxSize.
func CheckSize(size int64) error {
	if size <= 0 || size > MaxSize {
		return ErrInvalidSize
	}
	return nil
}

// DetectType sniffs data using magic-number detection.
func DetectType(data []byte) string {
	return mimetype.Detect(data).String()
}

// baseType drops media type parameters such as charset.
func baseType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
