package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

func TestDetectDuplicates_SingleLookup(t *testing.T) {
	store := newMemoryStore()
	store.seed("A1")
	candidates := MapRows([]Row{row(2, "A1", nil), row(3, "B1", nil), row(4, "C1", nil)})

	out, err := DetectDuplicates(t.Context(), store, candidates)

	require.NoError(t, err)
	assert.Equal(t, 1, store.lookupCalls)
	assert.True(t, out[0].DuplicateFlag)
	assert.Equal(t, MsgDuplicateInCatalog, out[0].DuplicateReason)
	assert.False(t, out[1].DuplicateFlag)
	assert.False(t, out[2].DuplicateFlag)
	assert.False(t, candidates[0].DuplicateFlag, "input must not be modified")
}

func TestDetectDuplicates_Idempotent(t *testing.T) {
	store := newMemoryStore()
	store.seed("A1")
	candidates := MapRows([]Row{row(2, "A1", nil), row(3, "B1", nil), row(4, "B1", nil)})

	first, err := DetectDuplicates(t.Context(), store, candidates)
	require.NoError(t, err)
	second, err := DetectDuplicates(t.Context(), store, first)
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].DuplicateFlag, second[i].DuplicateFlag)
		assert.Equal(t, first[i].DuplicateReason, second[i].DuplicateReason)
	}
}

func TestDetectDuplicates_RepeatInFile(t *testing.T) {
	store := newMemoryStore()
	candidates := MapRows([]Row{row(2, "A1", nil), row(3, "A1", nil)})

	out, err := DetectDuplicates(t.Context(), store, candidates)

	require.NoError(t, err)
	assert.False(t, out[0].DuplicateFlag)
	assert.True(t, out[1].DuplicateFlag)
	assert.Equal(t, MsgDuplicateInFile, out[1].DuplicateReason)
}

func TestDetectDuplicates_EmptyBatchSkipsLookup(t *testing.T) {
	store := newMemoryStore()

	out, err := DetectDuplicates(t.Context(), store, []models.CandidateProduct{{RowNumber: 2}})

	require.NoError(t, err)
	assert.Equal(t, 0, store.lookupCalls)
	assert.False(t, out[0].DuplicateFlag)
}

func TestDetectDuplicates_StoreError(t *testing.T) {
	store := newMemoryStore()
	store.lookupErr = errors.New("connection refused")

	_, err := DetectDuplicates(t.Context(), store, MapRows([]Row{row(2, "A1", nil)}))

	assert.ErrorIs(t, err, store.lookupErr)
}

func TestReflagInBatch(t *testing.T) {
	store := newMemoryStore()
	store.seed("C1")
	out, err := DetectDuplicates(t.Context(), store, MapRows([]Row{
		row(2, "A1", nil), row(3, "A1", nil), row(4, "C1", nil),
	}))
	require.NoError(t, err)

	// drop the first A1; the second one is no longer a repeat
	out = reflagInBatch(out[1:])

	assert.False(t, out[0].DuplicateFlag)
	assert.True(t, out[1].DuplicateFlag)
	assert.Equal(t, MsgDuplicateInCatalog, out[1].DuplicateReason)
}
