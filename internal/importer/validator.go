package importer

import "storefront-service/internal/models"

// Validate runs the required-field checks on one candidate and returns a copy with
// Validity filled in. A duplicate alone does not make the row invalid; it is kept
// out of the commit by Eligible instead.
func Validate(c models.CandidateProduct) models.CandidateProduct {
	errs := make([]string, 0, 2)

	if c.ExternalID == "" {
		errs = append(errs, MsgProductIDRequired)
	}
	if c.ImageURL == "" {
		errs = append(errs, MsgImageURLRequired)
	}
	if c.ShortDescription == "" {
		errs = append(errs, MsgDescriptionRequired)
	}
	if c.AffiliateURL == "" {
		errs = append(errs, MsgPromotionURLRequired)
	}
	if c.PriceRaw == "" {
		errs = append(errs, MsgDiscountPriceRequired)
	}

	if c.DuplicateFlag {
		reason := c.DuplicateReason
		if reason == "" {
			reason = MsgDuplicateInCatalog
		}
		errs = append(errs, reason)
	}

	c.Validity = models.Validity{
		IsValid: len(errs) == 0 || (len(errs) == 1 && c.DuplicateFlag),
		Errors:  errs,
	}
	return c
}

// ValidateAll validates every candidate into a new slice
func ValidateAll(candidates []models.CandidateProduct) []models.CandidateProduct {
	out := make([]models.CandidateProduct, len(candidates))
	for i, c := range candidates {
		out[i] = Validate(c)
	}
	return out
}

// EligibleCandidates returns valid, non-duplicate candidates in scan order
func EligibleCandidates(candidates []models.CandidateProduct) []models.CandidateProduct {
	eligible := make([]models.CandidateProduct, 0, len(candidates))
	for _, c := range candidates {
		if c.Eligible() {
			eligible = append(eligible, c)
		}
	}
	return eligible
}
