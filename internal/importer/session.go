package importer

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"storefront-service/internal/models"
)

const progressTitleLength = 40

// ProgressFunc receives a progress snapshot after every processed candidate
type ProgressFunc func(models.ImportProgress)

// Session drives one spreadsheet through scan, review and commit.
// Candidate slices are always replaced, never edited in place, so a slice handed
// out by Summary stays consistent while the session moves on.
type Session struct {
	ID uuid.UUID

	store  CatalogStore
	logger *logrus.Entry

	mu         sync.RWMutex
	state      models.ImportState
	fileName   string
	categoryID *uuid.UUID
	candidates []models.CandidateProduct
	progress   *models.ImportProgress
	result     *models.ImportResult
	lastError  string
	updatedAt  time.Time

	cancelRequested atomic.Bool
	done            chan struct{}
}

// NewSession creates an idle session backed by store
func NewSession(store CatalogStore, logger *logrus.Entry) *Session {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	id := uuid.New()
	return &Session{
		ID:        id,
		store:     store,
		logger:    logger.WithField("import_session", id.String()),
		state:     models.ImportStateIdle,
		updatedAt: time.Now(),
	}
}

// State returns the current lifecycle state
func (s *Session) State() models.ImportState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UpdatedAt is the time of the last scan, edit or commit step
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Candidates returns the current batch snapshot
func (s *Session) Candidates() []models.CandidateProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidates
}

// Scan reads the workbook and replaces the batch with freshly mapped, checked and
// validated candidates. A parse or lookup failure leaves an empty batch and IDLE state.
func (s *Session) Scan(ctx context.Context, fileName string, r io.Reader) error {
	if err := s.beginScan(); err != nil {
		return err
	}

	rows, err := ReadWorkbook(r, fileName)
	if err != nil {
		s.failScan(err)
		return err
	}
	return s.finishScan(ctx, fileName, rows)
}

// ScanRows is Scan for rows that were already read from a workbook
func (s *Session) ScanRows(ctx context.Context, fileName string, rows []Row) error {
	if err := s.beginScan(); err != nil {
		return err
	}
	return s.finishScan(ctx, fileName, rows)
}

func (s *Session) beginScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.ImportStateImporting || s.state == models.ImportStateScanning {
		return ErrImportInProgress
	}
	s.state = models.ImportStateScanning
	s.result = nil
	s.progress = nil
	s.lastError = ""
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) failScan(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.ImportStateIdle
	s.candidates = nil
	s.fileName = ""
	s.lastError = err.Error()
	s.updatedAt = time.Now()
	s.logger.WithError(err).Warn("Import scan failed")
}

func (s *Session) finishScan(ctx context.Context, fileName string, rows []Row) error {
	s.mu.RLock()
	categoryID := s.categoryID
	s.mu.RUnlock()

	mapped := MapRows(rows)
	for i := range mapped {
		mapped[i].CategoryID = categoryID
	}

	flagged, err := DetectDuplicates(ctx, s.store, mapped)
	if err != nil {
		s.failScan(err)
		return err
	}
	validated := ValidateAll(flagged)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = validated
	s.fileName = fileName
	s.state = models.ImportStatePreviewing
	s.updatedAt = time.Now()

	s.logger.WithFields(logrus.Fields{
		"file":       fileName,
		"rows":       len(validated),
		"duplicates": CountDuplicates(validated),
		"eligible":   len(EligibleCandidates(validated)),
	}).Info("Import file scanned")
	return nil
}

// RemoveRow drops the candidate at index from the batch
func (s *Session) RemoveRow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.candidates) {
		return ErrRowOutOfRange
	}

	next := make([]models.CandidateProduct, 0, len(s.candidates)-1)
	next = append(next, s.candidates[:index]...)
	next = append(next, s.candidates[index+1:]...)
	s.candidates = ValidateAll(reflagInBatch(next))
	s.updatedAt = time.Now()
	return nil
}

// SetCategory sets the shared target category on every candidate. Nil clears it.
func (s *Session) SetCategory(categoryID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkEditableLocked(); err != nil {
		return err
	}

	next := make([]models.CandidateProduct, len(s.candidates))
	for i, c := range s.candidates {
		c.CategoryID = categoryID
		next[i] = c
	}
	s.candidates = next
	s.categoryID = categoryID
	s.updatedAt = time.Now()
	return nil
}

// CategoryID returns the shared target category, if one was chosen
func (s *Session) CategoryID() *uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryID
}

func (s *Session) checkEditableLocked() error {
	if s.state == models.ImportStateImporting || s.state == models.ImportStateScanning {
		return ErrImportInProgress
	}
	return nil
}

// Cancel asks a running commit loop to stop before its next candidate.
// It reports whether an import was running.
func (s *Session) Cancel() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != models.ImportStateImporting {
		return false
	}
	s.cancelRequested.Store(true)
	return true
}

type commitPlan struct {
	eligible   []models.CandidateProduct
	duplicates int
	categoryID *uuid.UUID
}

func (s *Session) beginImport() (*commitPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.ImportStateImporting || s.state == models.ImportStateScanning {
		return nil, ErrImportInProgress
	}
	eligible := EligibleCandidates(s.candidates)
	if len(eligible) == 0 {
		if len(s.candidates) > 0 {
			s.state = models.ImportStatePreviewing
			s.updatedAt = time.Now()
		}
		return nil, ErrNoEligibleCandidates
	}

	s.state = models.ImportStateImporting
	s.cancelRequested.Store(false)
	s.result = nil
	s.lastError = ""
	s.progress = &models.ImportProgress{Current: 0, Total: len(eligible)}
	s.done = make(chan struct{})
	s.updatedAt = time.Now()

	return &commitPlan{
		eligible:   eligible,
		duplicates: CountDuplicates(s.candidates),
		categoryID: s.categoryID,
	}, nil
}

// Import commits the eligible candidates one at a time and blocks until the loop ends.
// It returns ErrNoEligibleCandidates when nothing can be committed; a kept batch goes
// back to PREVIEWING.
func (s *Session) Import(ctx context.Context, onProgress ProgressFunc) (*models.ImportResult, error) {
	plan, err := s.beginImport()
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, plan, onProgress), nil
}

// Start is Import in the background. The state is IMPORTING when Start returns;
// onDone runs once the loop has finished and the session is settled.
func (s *Session) Start(ctx context.Context, onProgress ProgressFunc, onDone func(models.ImportResult)) error {
	plan, err := s.beginImport()
	if err != nil {
		return err
	}
	go func() {
		result := s.commit(ctx, plan, onProgress)
		if onDone != nil {
			onDone(*result)
		}
	}()
	return nil
}

// Wait blocks until the current or most recent commit loop has finished
func (s *Session) Wait(ctx context.Context) error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) commit(ctx context.Context, plan *commitPlan, onProgress ProgressFunc) *models.ImportResult {
	result := &models.ImportResult{
		Eligible:          len(plan.eligible),
		DuplicatesSkipped: plan.duplicates,
		Errors:            make([]models.ImportRowError, 0),
		StartedAt:         time.Now(),
	}
	total := len(plan.eligible)
	// cancellation is only observed between rows; a started row always finishes
	rowCtx := context.WithoutCancel(ctx)

	for i, c := range plan.eligible {
		if s.cancelRequested.Load() || ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		s.commitOne(rowCtx, c, plan.categoryID, result)

		progress := models.ImportProgress{Current: i + 1, Total: total, Title: progressTitle(c.Title)}
		s.mu.Lock()
		s.progress = &progress
		s.updatedAt = time.Now()
		s.mu.Unlock()
		if onProgress != nil {
			onProgress(progress)
		}
	}

	result.Skipped = result.DuplicatesSkipped + result.LateSkipped
	result.FinishedAt = time.Now()

	s.mu.Lock()
	if result.Cancelled {
		s.state = models.ImportStateCancelled
	} else {
		s.state = models.ImportStateCompleted
	}
	if result.Success > 0 && !result.Cancelled {
		s.candidates = nil
		s.fileName = ""
	}
	s.result = result
	s.updatedAt = time.Now()
	done := s.done
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"success":   result.Success,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
		"cancelled": result.Cancelled,
		"duration":  result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Import finished")

	if done != nil {
		close(done)
	}
	return result
}

// commitOne re-checks, inserts and links a single candidate, updating the counters
func (s *Session) commitOne(ctx context.Context, c models.CandidateProduct, categoryID *uuid.UUID, result *models.ImportResult) {
	log := s.logger.WithFields(logrus.Fields{"row": c.RowNumber, "external_id": c.ExternalID})

	// Another import may have committed this product since the scan.
	existing, err := s.store.FindProductsByExternalIDs(ctx, []string{c.ExternalID})
	if err != nil {
		log.WithError(err).Warn("Existence re-check failed, inserting anyway")
	} else if len(existing) > 0 {
		result.LateSkipped++
		return
	}

	product := ToProduct(c)
	if err := s.store.InsertProduct(ctx, product); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			result.LateSkipped++
			return
		}
		commitErr := &CommitError{Row: c.RowNumber, ExternalID: c.ExternalID, Err: err}
		log.WithError(err).Error("Failed to insert product")
		result.Failed++
		result.Errors = append(result.Errors, models.ImportRowError{
			Row:        c.RowNumber,
			ExternalID: c.ExternalID,
			Code:       "INSERT_FAILED",
			Message:    commitErr.Error(),
		})
		return
	}

	result.Success++
	result.CreatedIDs = append(result.CreatedIDs, product.ID)

	if categoryID == nil {
		return
	}
	if err := s.store.InsertCategoryLink(ctx, product.ID, *categoryID); err != nil {
		linkErr := &LinkError{ProductID: product.ID, CategoryID: *categoryID, Err: err}
		result.LinkFailures++
		log.WithError(linkErr).Warn("Product committed without its category link")
	}
}

// ToProduct builds the catalog row for a candidate. Imported products always start
// as drafts; the hot and featured badges are derived once, here.
func ToProduct(c models.CandidateProduct) *models.Product {
	externalID := c.ExternalID
	shortDesc := c.ShortDescription
	currency := c.Currency
	price := c.Price
	originalPrice := c.OriginalPrice
	discount := c.DiscountPercent
	commission := c.CommissionRatePercent
	sales := c.SalesCount
	rating := c.RatingOutOf5
	feedback := RatingToFeedback(c.RatingOutOf5)

	p := &models.Product{
		ID:               uuid.New(),
		ExternalID:       &externalID,
		Title:            c.Title,
		ShortDesc:        &shortDesc,
		ImageURL:         c.ImageURL,
		VideoURL:         c.VideoURL,
		AliURL:           c.SourceURL,
		AffiliateURL:     c.AffiliateURL,
		Price:            &price,
		OriginalPrice:    &originalPrice,
		Currency:         &currency,
		DiscountPercent:  &discount,
		CommissionRate:   &commission,
		SalesCount:       &sales,
		PositiveFeedback: &feedback,
		Rating:           &rating,
		IsHot:            c.SalesCount > models.HotSalesThreshold,
		IsFeatured:       c.DiscountPercent >= models.FeaturedDiscountPercent,
		Status:           models.ProductStatusDraft,
	}
	if c.Coupon != nil {
		p.CouponCode = optionalString(c.Coupon.Code)
		p.CouponValue = optionalString(c.Coupon.Value)
		p.CouponMinSpend = optionalString(c.Coupon.MinSpend)
		p.CouponEndDate = optionalString(c.Coupon.EndDate)
	}
	return p
}

// Summary returns the preview and status document for the session
func (s *Session) Summary(includeCandidates bool) models.ImportSessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := models.ImportSessionSummary{
		ID:         s.ID,
		State:      s.state,
		FileName:   s.fileName,
		CategoryID: s.categoryID,
		TotalRows:  len(s.candidates),
		LastError:  s.lastError,
		UpdatedAt:  s.updatedAt,
	}
	for _, c := range s.candidates {
		if c.Validity.IsValid {
			summary.ValidCount++
		} else {
			summary.InvalidCount++
		}
		if c.DuplicateFlag {
			summary.DuplicateCount++
		}
		if c.Eligible() {
			summary.EligibleCount++
		}
	}
	if includeCandidates {
		summary.Candidates = s.candidates
	}
	if s.progress != nil {
		p := *s.progress
		summary.Progress = &p
	}
	if s.result != nil {
		r := *s.result
		summary.Result = &r
	}
	return summary
}

// ExternalIDs lists the non-empty external IDs in the current batch, in order
func (s *Session) ExternalIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c.ExternalID != "" {
			ids = append(ids, c.ExternalID)
		}
	}
	return ids
}

func progressTitle(title string) string {
	return truncateRunes(title, progressTitleLength) + "..."
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
