package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/recall-go/pkg/core"
)

func TestStoreError_Format(t *testing.T) {
	err := core.NewStoreError("Ingest", core.ErrValidation)
	require.Error(t, err)
	assert.Equal(t, "recall: Ingest: validation failed", err.Error())
}

func TestStoreError_Unwrap(t *testing.T) {
	wrapped := core.NewStoreError("Retrieve",
		fmt.Errorf("%w: user id is required", core.ErrValidation))

	assert.ErrorIs(t, wrapped, core.ErrValidation)

	var storeErr *core.StoreError
	require.ErrorAs(t, wrapped, &storeErr)
	assert.Equal(t, "Retrieve", storeErr.Op)
}

func TestNewStoreError_NilPassthrough(t *testing.T) {
	assert.NoError(t, core.NewStoreError("Ingest", nil))
}

func TestStoreError_SentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		core.ErrValidation,
		core.ErrTransactionConflict,
		core.ErrQuotaExceeded,
		core.ErrNotFound,
		core.ErrRestoreInProgress,
		core.ErrInvalidConfig,
		core.ErrConnectionFailed,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}
