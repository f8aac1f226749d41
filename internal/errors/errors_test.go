package errors

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategoryAndSeverity(t *testing.T) {
	e := New(ErrCodeVectorExtensionMissing, "vec0 extension not found", nil)
	assert.Equal(t, CategoryConfiguration, e.Category)
	assert.Equal(t, SeverityFatal, e.Severity)
	assert.False(t, e.Retryable)

	e = New(ErrCodeHTTPTimeout, "timed out", nil)
	assert.Equal(t, CategoryTransientNetwork, e.Category)
	assert.True(t, e.Retryable)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeFileMissing, nil))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := New(ErrCodeFileMissing, "gone", nil)
	b := New(ErrCodeFileMissing, "also gone", nil)
	assert.True(t, errors.Is(a, b))

	c := New(ErrCodePermissionDenied, "denied", nil)
	assert.False(t, errors.Is(a, c))
}

func TestWithDetailAndSuggestionChain(t *testing.T) {
	e := New(ErrCodeOversizeInput, "chunk too long", nil).
		WithDetail("chunk_id", "42").
		WithSuggestion("reduce chunk_size")
	require.Equal(t, "42", e.Details["chunk_id"])
	require.Equal(t, "reduce chunk_size", e.Suggestion)
}

func TestPanicErrorCarriesRecoveredValue(t *testing.T) {
	e := PanicError("index out of range [3] with length 2")
	assert.Equal(t, ErrCodePanicRecovered, e.Code)
	assert.Equal(t, CategoryPanic, e.Category)
	assert.Contains(t, e.Message, "index out of range")
}

func TestIOErrorClassifiesByCause(t *testing.T) {
	missing := IOError("read /docs/a.txt", os.ErrNotExist)
	assert.Equal(t, ErrCodeFileMissing, missing.Code)

	denied := IOError("read /docs/a.txt", os.ErrPermission)
	assert.Equal(t, ErrCodePermissionDenied, denied.Code)
	assert.ErrorIs(t, denied, os.ErrPermission)
}

func TestExtractionErrorKeepsCode(t *testing.T) {
	e := ExtractionError(ErrCodeDOCXParseFailed, "bad xml", errors.New("unexpected EOF"))
	assert.Equal(t, ErrCodeDOCXParseFailed, e.Code)
	assert.Equal(t, CategoryExtraction, e.Category)
}

func TestIntegrityErrorSeverity(t *testing.T) {
	e := IntegrityError(ErrCodeZeroDimension, "dim is zero")
	assert.Equal(t, SeverityFatal, e.Severity)
	assert.False(t, e.Retryable)
}
