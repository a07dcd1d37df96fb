package importer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

func TestSession_EndToEnd(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	categoryID := uuid.New()

	rows := []Row{
		row(2, "A1", map[string]string{models.ColDiscountPrice: "MXN 50.00"}),
		row(3, "A1", nil),
		row(4, "B1", map[string]string{models.ColImageURL: ""}),
	}
	require.NoError(t, session.ScanRows(t.Context(), "export.xlsx", rows))
	require.NoError(t, session.SetCategory(&categoryID))

	assert.Equal(t, models.ImportStatePreviewing, session.State())
	candidates := session.Candidates()
	require.Len(t, candidates, 3)
	assert.True(t, candidates[1].DuplicateFlag)
	assert.False(t, candidates[2].Validity.IsValid)
	assert.Equal(t, []string{MsgImageURLRequired}, candidates[2].Validity.Errors)

	var progress []models.ImportProgress
	result, err := session.Import(t.Context(), func(p models.ImportProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.Cancelled)
	assert.Equal(t, models.ImportStateCompleted, session.State())

	inserted := store.products["A1"]
	require.NotNil(t, inserted)
	assert.Equal(t, models.ProductStatusDraft, inserted.Status)
	assert.True(t, inserted.Price.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, 1, store.linkCount())

	require.Len(t, progress, 1)
	assert.Equal(t, 1, progress[0].Current)
	assert.Equal(t, 1, progress[0].Total)
	assert.Equal(t, "Wireless earbuds A1...", progress[0].Title)

	// batch is cleared after a successful run
	assert.Empty(t, session.Candidates())
	assert.Empty(t, session.Summary(false).FileName)
}

func TestSession_NoEligibleCandidates(t *testing.T) {
	store := newMemoryStore()
	store.seed("A1")
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil)}))

	_, err := session.Import(t.Context(), nil)

	assert.ErrorIs(t, err, ErrNoEligibleCandidates)
	assert.Equal(t, models.ImportStatePreviewing, session.State())
	assert.Equal(t, 0, store.insertCalls)
}

func TestSession_ScanLookupFailureLeavesIdle(t *testing.T) {
	store := newMemoryStore()
	store.lookupErr = errors.New("timeout")
	session := NewSession(store, nil)

	err := session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil)})

	assert.Error(t, err)
	assert.Equal(t, models.ImportStateIdle, session.State())
	assert.Empty(t, session.Candidates())
	assert.NotEmpty(t, session.Summary(false).LastError)
}

func TestSession_LateDuplicateIsSkipped(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	// another import commits B1 after the scan
	store.seed("B1")

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.LateSkipped)
	assert.Equal(t, 1, result.Skipped)
}

func TestSession_UniqueViolationCountsAsSkip(t *testing.T) {
	store := newMemoryStore()
	store.insertErr["A1"] = ErrAlreadyExists
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil)}))

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	// no success, so the batch stays for inspection
	assert.Len(t, session.Candidates(), 1)
}

func TestSession_InsertFailureRecorded(t *testing.T) {
	store := newMemoryStore()
	store.insertErr["B1"] = errors.New("value too long")
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "B1", result.Errors[0].ExternalID)
}

func TestSession_LinkFailureStillSuccess(t *testing.T) {
	store := newMemoryStore()
	store.linkErr = errors.New("foreign key violation")
	session := NewSession(store, nil)
	categoryID := uuid.New()
	require.NoError(t, session.SetCategory(&categoryID))
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil)}))

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.LinkFailures)
}

func TestSession_CancelKeepsPartialCounts(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	rows := make([]Row, 0, 10)
	for i := 0; i < 10; i++ {
		rows = append(rows, row(i+2, uuid.NewString(), nil))
	}
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", rows))
	store.afterInsert = func(n int) {
		if n == 3 {
			session.Cancel()
		}
	}

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, 3, result.Success)
	assert.LessOrEqual(t, result.Processed(), result.Eligible)
	assert.Equal(t, models.ImportStateCancelled, session.State())
	// cancelled runs keep the batch
	assert.Len(t, session.Candidates(), 10)
}

func TestSession_ContextCancelStopsLoop(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	ctx, cancel := contextWithCancel(t)
	store.afterInsert = func(int) { cancel() }

	result, err := session.Import(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Success)
}

func TestSession_ContextCancelDuringInsertFinishesRow(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	ctx, cancel := contextWithCancel(t)
	store.beforeInsert = cancel

	result, err := session.Import(ctx, nil)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, store.insertCalls)
	assert.Equal(t, models.ImportStateCancelled, session.State())
}

func TestSession_NothingEligibleAfterRunReturnsToPreview(t *testing.T) {
	store := newMemoryStore()
	store.seed("A1")
	store.insertErr["B1"] = errors.New("value too long")
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	result, err := session.Import(t.Context(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, models.ImportStateCompleted, session.State())
	require.Len(t, session.Candidates(), 2)

	// only the pre-existing duplicate is left
	require.NoError(t, session.RemoveRow(1))
	_, err = session.Import(t.Context(), nil)

	assert.ErrorIs(t, err, ErrNoEligibleCandidates)
	assert.Equal(t, models.ImportStatePreviewing, session.State())
}

func TestSession_EditsRefusedWhileImporting(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{row(2, "A1", nil), row(3, "B1", nil)}))

	release := make(chan struct{})
	var once sync.Once
	store.afterInsert = func(int) { once.Do(func() { <-release }) }

	done := make(chan models.ImportResult, 1)
	require.NoError(t, session.Start(t.Context(), nil, func(r models.ImportResult) { done <- r }))

	assert.ErrorIs(t, session.RemoveRow(0), ErrImportInProgress)
	assert.ErrorIs(t, session.SetCategory(nil), ErrImportInProgress)
	_, err := session.Import(t.Context(), nil)
	assert.ErrorIs(t, err, ErrImportInProgress)

	close(release)
	select {
	case r := <-done:
		assert.Equal(t, 2, r.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("import did not finish")
	}
	require.NoError(t, session.Wait(t.Context()))
	assert.Equal(t, models.ImportStateCompleted, session.State())
}

func TestSession_RemoveRowAndCategoryBroadcast(t *testing.T) {
	store := newMemoryStore()
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{
		row(2, "A1", nil), row(3, "A1", nil), row(4, "B1", nil),
	}))
	before := session.Candidates()

	require.NoError(t, session.RemoveRow(0))
	after := session.Candidates()
	require.Len(t, after, 2)
	assert.Equal(t, 3, after[0].RowNumber)
	assert.False(t, after[0].DuplicateFlag, "remaining A1 is no longer a repeat")
	assert.True(t, after[0].Eligible())
	assert.Len(t, before, 3, "earlier snapshot is untouched")

	categoryID := uuid.New()
	require.NoError(t, session.SetCategory(&categoryID))
	for _, c := range session.Candidates() {
		require.NotNil(t, c.CategoryID)
		assert.Equal(t, categoryID, *c.CategoryID)
	}
	assert.Nil(t, after[0].CategoryID)

	assert.ErrorIs(t, session.RemoveRow(5), ErrRowOutOfRange)
	assert.ErrorIs(t, session.RemoveRow(-1), ErrRowOutOfRange)
}

func TestSession_Summary(t *testing.T) {
	store := newMemoryStore()
	store.seed("D1")
	session := NewSession(store, nil)
	require.NoError(t, session.ScanRows(t.Context(), "f.xlsx", []Row{
		row(2, "A1", nil),
		row(3, "D1", nil),
		row(4, "B1", map[string]string{models.ColProductDesc: ""}),
	}))

	s := session.Summary(true)

	assert.Equal(t, models.ImportStatePreviewing, s.State)
	assert.Equal(t, "f.xlsx", s.FileName)
	assert.Equal(t, 3, s.TotalRows)
	assert.Equal(t, 2, s.ValidCount)
	assert.Equal(t, 1, s.InvalidCount)
	assert.Equal(t, 1, s.DuplicateCount)
	assert.Equal(t, 1, s.EligibleCount)
	assert.Len(t, s.Candidates, 3)
	assert.Equal(t, []string{"A1", "D1", "B1"}, session.ExternalIDs())
}
