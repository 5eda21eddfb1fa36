// Package pipeline drives the embedding-to-projection flow end to end. Each
// phase queries the store for its pending set, works through it item by item,
// and writes results straight back, so an interrupted run resumes by simply
// running again: no in-memory state survives between runs, and none needs to.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/discovery"
	"github.com/canvaslab/atlas/pkg/embeddings"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
)

// Resolver maps a stored record back to an embeddable reference (a local path
// or URL). Implemented by discovery.Source.
type Resolver interface {
	Resolve(artist, filename string) (string, error)
}

// Config holds the pipeline's collaborators.
type Config struct {
	Store     *store.Store
	Embedder  embeddings.Embedder
	Resolver  Resolver
	Projector *projector.Projector
	Logger    *zap.Logger

	// Limit caps how many items one embedding run processes; 0 means no cap.
	// A second run picks up exactly the still-pending items.
	Limit int
}

// Pipeline orchestrates discovery, embedding, and projection phases. It is the
// only component allowed to swallow a per-item error and continue; every
// swallowed error ends up in the phase result.
type Pipeline struct {
	store     *store.Store
	embedder  embeddings.Embedder
	resolver  Resolver
	projector *projector.Projector
	logger    *zap.Logger
	limit     int
}

// New creates a Pipeline from its collaborators.
func New(c Config) (*Pipeline, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if c.Projector == nil {
		return nil, fmt.Errorf("projector is required")
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		store:     c.Store,
		embedder:  c.Embedder,
		resolver:  c.Resolver,
		projector: c.Projector,
		logger:    logger,
		limit:     c.Limit,
	}, nil
}

// Ingest upserts a placeholder row per discovered file. Upserts are idempotent
// on filename, so overlapping runs never duplicate rows.
func (p *Pipeline) Ingest(ctx context.Context, files []discovery.File) (*IngestResult, error) {
	result := &IngestResult{RunID: uuid.NewString(), Files: len(files)}

	for _, f := range files {
		id, err := p.store.Upsert(ctx, store.Record{
			Artist:   f.Artist,
			Filename: f.Filename(),
		})
		if err != nil {
			return nil, fmt.Errorf("ingesting %s: %w", f.Filename(), err)
		}
		result.Upserted++
		p.logger.Debug("ingested file",
			zap.Int64("id", id),
			zap.String("filename", f.Filename()),
			zap.String("artist", f.Artist),
		)
	}

	return result, nil
}

// EmbedPending embeds every row still missing its vector, one item at a time.
// Size-limit rejections are recorded as skipped, other failures as errored;
// neither aborts the run. The phase itself fails only when every pending item
// failed.
func (p *Pipeline) EmbedPending(ctx context.Context) (*EmbedResult, error) {
	if p.embedder == nil {
		return nil, fmt.Errorf("embedder is required for the embedding phase")
	}
	if p.resolver == nil {
		return nil, fmt.Errorf("resolver is required for the embedding phase")
	}

	all, err := p.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying pending embeddings: %w", err)
	}

	var pending []store.Record
	for _, rec := range all {
		if !rec.HasEmbedding {
			pending = append(pending, rec)
		}
	}
	if p.limit > 0 && len(pending) > p.limit {
		pending = pending[:p.limit]
	}

	result := &EmbedResult{RunID: uuid.NewString(), Pending: len(pending)}

	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			// Interruption between items is safe: completed patches are
			// already committed and the next run re-queries the store.
			return result, err
		}

		if err := p.embedOne(ctx, rec); err != nil {
			if errors.Is(err, embeddings.ErrSizeLimit) {
				result.Skipped = append(result.Skipped, ItemFailure{
					Identifier: rec.Filename,
					Reason:     err.Error(),
				})
				p.logger.Warn("image over size limit, skipping",
					zap.String("filename", rec.Filename),
				)
				continue
			}
			result.Errored = append(result.Errored, ItemFailure{
				Identifier: rec.Filename,
				Reason:     err.Error(),
			})
			p.logger.Error("embedding failed",
				zap.String("filename", rec.Filename),
				zap.Error(err),
			)
			continue
		}

		result.Embedded++
		p.logger.Info("embedded",
			zap.String("filename", rec.Filename),
			zap.Int("done", i+1),
			zap.Int("pending", len(pending)),
		)
	}

	if len(pending) > 0 && result.Embedded == 0 {
		return result, fmt.Errorf("embedding phase: all %d pending items failed", len(pending))
	}

	return result, nil
}

func (p *Pipeline) embedOne(ctx context.Context, rec store.Record) error {
	ref, err := p.resolver.Resolve(rec.Artist, rec.Filename)
	if err != nil {
		return err
	}

	vec, err := p.embedder.Embed(ctx, ref)
	if err != nil {
		return err
	}

	return p.store.PatchEmbedding(ctx, store.ByID(rec.ID), vec)
}

// ProjectPending projects every row that has an embedding but lacks the given
// policy's coordinates. The independent policy runs one item at a time so
// progress is visible item by item; the joint policy is a single fit over the
// whole pending set, because every item must influence every other.
func (p *Pipeline) ProjectPending(ctx context.Context, policy store.Policy) (*ProjectResult, error) {
	projPolicy, err := toProjectorPolicy(policy)
	if err != nil {
		return nil, err
	}

	all, err := p.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying pending projections: %w", err)
	}

	// A projection is only defined over a present embedding; placeholder rows
	// never reach the projector.
	var pending []store.Record
	for _, rec := range all {
		if rec.HasEmbedding && missingProjection(rec, policy) {
			pending = append(pending, rec)
		}
	}

	result := &ProjectResult{RunID: uuid.NewString(), Policy: policy, Pending: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	if policy == store.PolicyIndependent {
		return p.projectEach(ctx, pending, result, projPolicy)
	}
	return p.projectAll(ctx, pending, result, projPolicy)
}

func (p *Pipeline) projectEach(ctx context.Context, pending []store.Record, result *ProjectResult, policy projector.Policy) (*ProjectResult, error) {
	for i, rec := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		coords, err := p.projector.Project([]projector.Item{
			{ID: rec.ID, Embedding: rec.Embedding},
		}, policy)
		if err == nil {
			err = p.store.PatchProjection(ctx, store.ByID(rec.ID), result.Policy,
				store.Projection{X: coords[0].X, Y: coords[0].Y})
		}
		if err != nil {
			result.Errored = append(result.Errored, ItemFailure{
				Identifier: rec.Filename,
				Reason:     err.Error(),
			})
			p.logger.Error("projection failed",
				zap.String("filename", rec.Filename),
				zap.Error(err),
			)
			continue
		}

		result.Projected++
		p.logger.Info("projected",
			zap.String("filename", rec.Filename),
			zap.Int("done", i+1),
			zap.Int("pending", len(pending)),
		)
	}

	if result.Projected == 0 {
		return result, fmt.Errorf("projection phase (%s): all %d pending items failed",
			result.Policy, len(pending))
	}
	return result, nil
}

func (p *Pipeline) projectAll(ctx context.Context, pending []store.Record, result *ProjectResult, policy projector.Policy) (*ProjectResult, error) {
	items := make([]projector.Item, len(pending))
	byID := make(map[int64]string, len(pending))
	for i, rec := range pending {
		items[i] = projector.Item{ID: rec.ID, Embedding: rec.Embedding}
		byID[rec.ID] = rec.Filename
	}

	coords, err := p.projector.Project(items, policy)
	if err != nil {
		return result, fmt.Errorf("projection phase (%s): %w", result.Policy, err)
	}

	for _, c := range coords {
		if err := p.store.PatchProjection(ctx, store.ByID(c.ID), result.Policy,
			store.Projection{X: c.X, Y: c.Y}); err != nil {
			result.Errored = append(result.Errored, ItemFailure{
				Identifier: byID[c.ID],
				Reason:     err.Error(),
			})
			p.logger.Error("patching projection failed",
				zap.Int64("id", c.ID),
				zap.Error(err),
			)
			continue
		}
		result.Projected++
	}

	return result, nil
}

func missingProjection(rec store.Record, policy store.Policy) bool {
	if policy == store.PolicyIndependent {
		return rec.Independent == nil
	}
	return rec.Joint == nil
}

func toProjectorPolicy(policy store.Policy) (projector.Policy, error) {
	switch policy {
	case store.PolicyIndependent:
		return projector.PolicyIndependent, nil
	case store.PolicyJoint:
		return projector.PolicyJoint, nil
	default:
		return "", fmt.Errorf("%w: %q", store.ErrBadPolicy, policy)
	}
}
