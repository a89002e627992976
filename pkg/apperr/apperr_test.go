package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap("Resolve", CodeInvalidSelector, cause, map[string]any{MetaStrategy: "css"})

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "Resolve: boom", err.Error())

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "css", appErr.Metadata[MetaStrategy])
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFoundError("op", errors.New("x"))))
	assert.Equal(t, CodeInvalidArgument, CodeOf(fmt.Errorf("outer: %w", InvalidReqError("op", "strategy", errors.New("bad")))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWrapErrorWithReason(t *testing.T) {
	err := WrapErrorWithReason("Test", CodeNoDocument, "no_document_loaded")

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "no_document_loaded", appErr.Metadata[MetaReason])
	assert.Equal(t, "Test: no_document_loaded", err.Error())
}
