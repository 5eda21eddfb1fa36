package pipeline

import (
	"fmt"

	"github.com/canvaslab/atlas/pkg/store"
)

// ItemFailure records one item the pipeline swallowed an error for. Swallowed
// errors are always surfaced here, never dropped.
type ItemFailure struct {
	Identifier string
	Reason     string
}

// IngestResult contains statistics from a discovery run.
type IngestResult struct {
	RunID    string
	Files    int
	Upserted int
}

// Summary returns a human-readable summary of the ingest run.
func (r *IngestResult) Summary() string {
	return fmt.Sprintf("Ingest complete: %d files discovered, %d rows upserted", r.Files, r.Upserted)
}

// EmbedResult contains statistics from one embedding phase run.
type EmbedResult struct {
	RunID    string
	Pending  int
	Embedded int

	// Skipped holds items the provider rejected as oversized; operators can
	// pre-resize and retry those out of band.
	Skipped []ItemFailure

	// Errored holds items that failed for any other reason.
	Errored []ItemFailure
}

// Summary returns a human-readable summary of the embedding run.
func (r *EmbedResult) Summary() string {
	return fmt.Sprintf(
		"Embedding phase complete: %d embedded, %d skipped (size limit), %d errored of %d pending",
		r.Embedded, len(r.Skipped), len(r.Errored), r.Pending,
	)
}

// ProjectResult contains statistics from one projection phase run.
type ProjectResult struct {
	RunID     string
	Policy    store.Policy
	Pending   int
	Projected int
	Errored   []ItemFailure
}

// Summary returns a human-readable summary of the projection run.
func (r *ProjectResult) Summary() string {
	return fmt.Sprintf(
		"Projection phase (%s) complete: %d projected, %d errored of %d pending",
		r.Policy, r.Projected, len(r.Errored), r.Pending,
	)
}
