package importer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNoEligibleCandidates = errors.New("no eligible products to import")
	ErrImportInProgress     = errors.New("an import is already running for this session")
	ErrRowOutOfRange        = errors.New("row index out of range")
	ErrAlreadyExists        = errors.New("product with this external id already exists")
	ErrNothingToRetrofit    = errors.New("no external ids supplied")
)

// Per-row validation messages, in the order the validator emits them
const (
	MsgProductIDRequired     = "ProductId is required"
	MsgImageURLRequired      = "Image URL is required"
	MsgDescriptionRequired   = "Product description is required"
	MsgPromotionURLRequired  = "Promotion URL is required"
	MsgDiscountPriceRequired = "Discount price is required"
	MsgDuplicateInCatalog    = "Product already exists in database"
	MsgDuplicateInFile       = "Product appears more than once in this file"
)

// ParseError means the uploaded file could not be read as a workbook at all
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("failed to parse spreadsheet: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse spreadsheet %q: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CommitError records a product insert that failed during the commit loop
type CommitError struct {
	Row        int
	ExternalID string
	Err        error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("row %d (%s): insert failed: %v", e.Row, e.ExternalID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// LinkError is a category link failure; the product itself stays committed
type LinkError struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
	Err        error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link product %s to category %s: %v", e.ProductID, e.CategoryID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
