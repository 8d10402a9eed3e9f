package content

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func TestValidateAcceptsAllowListedTypes(t *testing.T) {
	cases := []struct {
		name        string
		data        []byte
		contentType string
		ext         string
	}{
		{"png", append(append([]byte{}, pngSignature...), bytes.Repeat([]byte{0x01}, 64)...), "image/png", "png"},
		{"jpeg", append([]byte("\xFF\xD8\xFF\xE0"), bytes.Repeat([]byte{0x02}, 64)...), "image/jpeg", "jpg"},
		{"pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"), "application/pdf", "pdf"},
	}

	v := NewValidator(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := v.Validate(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.contentType, res.ContentType)
			assert.Equal(t, tc.ext, res.Extension)
		})
	}
}

func TestValidateRejectsPlainText(t *testing.T) {
	v := NewValidator(nil)

	_, err := v.Validate([]byte("just some text pretending to be evil.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	var typeErr *UnsupportedTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "text/plain", typeErr.Detected)
	assert.Contains(t, err.Error(), "image/png")
}

func TestValidateRejectsEmptyPayload(t *testing.T) {
	v := NewValidator(func([]byte) string {
		t.Fatal("sniffer must not run for an empty payload")
		return ""
	})

	_, err := v.Validate(nil)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestCheckSizeBoundaries(t *testing.T) {
	assert.ErrorIs(t, CheckSize(0), ErrInvalidSize)
	assert.ErrorIs(t, CheckSize(-1), ErrInvalidSize)
	assert.NoError(t, CheckSize(1))
	assert.NoError(t, CheckSize(2*1024*1024*1024))
	assert.ErrorIs(t, CheckSize(2*1024*1024*1024+1), ErrInvalidSize)
}

func TestValidateUsesInjectedSniffer(t *testing.T) {
	v := NewValidator(func([]byte) string { return "IMAGE/PNG; foo=bar" })

	res, err := v.Validate([]byte("anything"))
	require.NoError(t, err)
	assert.Equal(t, "png", res.Extension)
}
