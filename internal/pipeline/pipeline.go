package pipeline

import (
	"go.uber.org/zap"

	"diary-service/internal/models"
)

// Config holds the knobs that varied across deployments of the original
// cleaning scripts. Both are externally configurable; the pipeline itself
// hard-codes neither.
type Config struct {
	RequiredColumns  []string
	MinCategoryCount int
}

// DefaultRequiredColumns is the full diary column set.
var DefaultRequiredColumns = models.SourceColumns

// Result is the outcome of one pipeline run. Cleaned and DedupRemoved are
// disjoint and their union is the normalizer's output as a multiset, before
// pruning. PrunedRows is the separate complement removed by the category
// pruner; callers choose which complements to expose.
type Result struct {
	Cleaned      models.RecordSet
	DedupRemoved models.RecordSet
	PrunedRows   models.RecordSet

	CategoriesRetained []string
	CategoriesRemoved  []string
}

// Cleaner runs the cleaning stages over a decoded table.
type Cleaner struct {
	cfg    Config
	logger *zap.Logger
}

// NewCleaner creates a cleaner. Zero config fields fall back to defaults
// (the full column set, threshold 2).
func NewCleaner(cfg Config, logger *zap.Logger) *Cleaner {
	if len(cfg.RequiredColumns) == 0 {
		cfg.RequiredColumns = DefaultRequiredColumns
	}
	if cfg.MinCategoryCount <= 0 {
		cfg.MinCategoryCount = 2
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// Run executes normalize -> dedup -> prune -> derive. Load and validation
// problems abort the run; per-record derivation never does.
func (c *Cleaner) Run(table *models.Table) (*Result, error) {
	normalized, err := Normalize(table, c.cfg.RequiredColumns)
	if err != nil {
		return nil, err
	}

	accepted, dedupRemoved := Deduplicate(normalized)
	pruned := PruneCategories(accepted, c.cfg.MinCategoryCount)

	DeriveFields(pruned.Records)

	c.logger.Info("pipeline run complete",
		zap.Int("input_rows", len(table.Records)),
		zap.Int("normalized_rows", len(normalized)),
		zap.Int("deduplicated_rows", len(accepted)),
		zap.Int("cleaned_rows", len(pruned.Records)),
		zap.Int("duplicates_removed", len(dedupRemoved)),
		zap.Int("rows_pruned", len(pruned.PrunedRows)),
		zap.Strings("categories_removed", pruned.Removed))

	return &Result{
		Cleaned:            pruned.Records,
		DedupRemoved:       dedupRemoved,
		PrunedRows:         pruned.PrunedRows,
		CategoriesRetained: pruned.Retained,
		CategoriesRemoved:  pruned.Removed,
	}, nil
}
