package importer

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
)

// DetectDuplicates flags candidates whose external ID is already in the catalog, using
// a single store lookup for the whole batch. A repeat of an ID seen earlier in the same
// batch is flagged too, so one file never commits the same product twice.
// The input slice is not modified; flags are recomputed from scratch on every call.
func DetectDuplicates(ctx context.Context, store CatalogStore, candidates []models.CandidateProduct) ([]models.CandidateProduct, error) {
	ids := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.ExternalID == "" {
			continue
		}
		if _, ok := seen[c.ExternalID]; ok {
			continue
		}
		seen[c.ExternalID] = struct{}{}
		ids = append(ids, c.ExternalID)
	}

	existing := make(map[string]struct{})
	if len(ids) > 0 {
		found, err := store.FindProductsByExternalIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to look up existing products: %w", err)
		}
		for _, p := range found {
			existing[p.ExternalID] = struct{}{}
		}
	}

	out := make([]models.CandidateProduct, len(candidates))
	inBatch := make(map[string]struct{}, len(candidates))
	for i, c := range candidates {
		c.DuplicateFlag = false
		c.DuplicateReason = ""
		if c.ExternalID != "" {
			if _, ok := existing[c.ExternalID]; ok {
				c.DuplicateFlag = true
				c.DuplicateReason = MsgDuplicateInCatalog
			} else if _, ok := inBatch[c.ExternalID]; ok {
				c.DuplicateFlag = true
				c.DuplicateReason = MsgDuplicateInFile
			}
			inBatch[c.ExternalID] = struct{}{}
		}
		out[i] = c
	}
	return out, nil
}

// CountDuplicates returns how many candidates carry the duplicate flag
func CountDuplicates(candidates []models.CandidateProduct) int {
	n := 0
	for _, c := range candidates {
		if c.DuplicateFlag {
			n++
		}
	}
	return n
}

// reflagInBatch recomputes the in-file repeat flags after rows were removed, keeping
// catalog duplicates as they were found at scan time.
func reflagInBatch(candidates []models.CandidateProduct) []models.CandidateProduct {
	out := make([]models.CandidateProduct, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i, c := range candidates {
		if c.DuplicateReason == MsgDuplicateInFile {
			c.DuplicateFlag = false
			c.DuplicateReason = ""
		}
		if c.ExternalID != "" {
			if _, ok := seen[c.ExternalID]; ok && !c.DuplicateFlag {
				c.DuplicateFlag = true
				c.DuplicateReason = MsgDuplicateInFile
			}
			seen[c.ExternalID] = struct{}{}
		}
		out[i] = c
	}
	return out
}
