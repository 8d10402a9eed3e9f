package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidSize signals a payload outside the accepted size range.
	ErrInvalidSize = errors.New("supported file size is 0 - 2 GB")
	// ErrUnsupportedType signals a sniffed content type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// UnsupportedTypeError carries the detected content type of a rejected payload.
type UnsupportedTypeError struct {
	Detected string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %s. Supported types are %s", e.Detected, supportedList())
}

// Is reports whether target is ErrUnsupportedType.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

func supportedList() string {
	types := make([]string, 0, len(allowed))
	for contentType, ext := range allowed {
		types = append(types, contentType+" ("+ext+")")
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
