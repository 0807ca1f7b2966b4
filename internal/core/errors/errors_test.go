package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaxonomyUnwrapsThroughWrapping(t *testing.T) {
	transfer := fmt.Errorf("download: %w", &TransferError{Op: "get", Container: "raw", Name: "a.xlsx", Err: io.ErrUnexpectedEOF})
	require.True(t, IsTransfer(transfer))
	require.ErrorIs(t, transfer, io.ErrUnexpectedEOF)
	require.False(t, IsValidation(transfer))

	timeout := fmt.Errorf("move: %w", &CopyTimeoutError{Name: "a.xlsx", Waited: 300 * time.Second})
	require.True(t, IsTransfer(timeout))
	require.Contains(t, timeout.Error(), "5m0s")

	validation := fmt.Errorf("process: %w", &ValidationError{File: "a.xlsx", Missing: []string{"Brand", "Color"}})
	require.True(t, IsValidation(validation))
	require.Contains(t, validation.Error(), "Brand, Color")

	persist := &PersistenceError{Op: "merge month", Err: io.EOF}
	require.ErrorIs(t, persist, io.EOF)
	var pe *PersistenceError
	require.True(t, stderrors.As(fmt.Errorf("wrap: %w", persist), &pe))
}
