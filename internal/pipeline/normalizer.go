// Package pipeline implements the record-cleaning stages: flag-based
// filtering, deduplication, rarity pruning and derived-field extraction.
// Each stage consumes its predecessor's accepted set; rejected rows are
// tracked but never re-enter the pipeline.
package pipeline

import (
	"fmt"
	"strings"

	"diary-service/internal/models"
)

// ValidationError reports one or more required columns missing from the
// source header. The request fails fast; no partial output is produced.
type ValidationError struct {
	MissingColumns []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.MissingColumns, ", "))
}

// Normalize verifies column presence and filters rows by flag and presence
// predicates. Surviving rows keep their relative input order. A row survives
// when both flags parse to false and Description and Category are non-blank.
func Normalize(table *models.Table, required []string) (models.RecordSet, error) {
	var missing []string
	for _, col := range required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{MissingColumns: missing}
	}

	kept := make(models.RecordSet, 0, len(table.Records))
	for _, r := range table.Records {
		if r.IgnoreEntry.Bool() || r.InternalUseOnly.Bool() {
			continue
		}
		if strings.TrimSpace(r.Description) == "" || strings.TrimSpace(r.Category) == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
