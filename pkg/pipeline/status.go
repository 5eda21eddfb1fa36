package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/canvaslab/atlas/pkg/store"
)

// StageStatus reports one stage's progress: how many records have or lack its
// field, the first record still pending, and contiguous ID range strings
// showing operators exactly where the gaps sit.
type StageStatus struct {
	With    int
	Without int

	// FirstWithout is the filename of the lowest-id record still pending,
	// empty when the stage is complete.
	FirstWithout string

	// WithRanges and WithoutRanges are contiguous ID ranges like "1-40, 45",
	// or "none".
	WithRanges    string
	WithoutRanges string
}

// Status is a full snapshot of pipeline progress, recomputed from the store.
type Status struct {
	Total       int
	Embeddings  StageStatus
	Independent StageStatus
	Joint       StageStatus
}

// Status recomputes the per-stage snapshot from the store. Every phase run
// ends with one of these regardless of how many individual items failed.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	all, err := p.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying status: %w", err)
	}

	// Store.All returns records ordered by id, which the range analysis
	// depends on.
	return &Status{
		Total:       len(all),
		Embeddings:  stageStatus(all, func(r store.Record) bool { return r.HasEmbedding }),
		Independent: stageStatus(all, func(r store.Record) bool { return r.Independent != nil }),
		Joint:       stageStatus(all, func(r store.Record) bool { return r.Joint != nil }),
	}, nil
}

// Summary renders the snapshot for operators.
func (s *Status) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total files: %d\n", s.Total)
	writeStage(&b, "embeddings", s.Embeddings)
	writeStage(&b, "independent projections", s.Independent)
	writeStage(&b, "joint projections", s.Joint)
	return strings.TrimRight(b.String(), "\n")
}

func writeStage(b *strings.Builder, name string, st StageStatus) {
	fmt.Fprintf(b, "Files with %s: %d, without: %d\n", name, st.With, st.Without)
	fmt.Fprintf(b, "  IDs with: %s; without: %s\n", st.WithRanges, st.WithoutRanges)
	if st.FirstWithout != "" {
		fmt.Fprintf(b, "  Next file needing %s: %s\n", name, st.FirstWithout)
	}
}

func stageStatus(sorted []store.Record, has func(store.Record) bool) StageStatus {
	st := StageStatus{}

	var withRanges, withoutRanges []string
	type idRange struct {
		start, end int64
		has        bool
	}
	var cur *idRange

	flush := func() {
		if cur == nil {
			return
		}
		s := fmt.Sprintf("%d", cur.start)
		if cur.start != cur.end {
			s = fmt.Sprintf("%d-%d", cur.start, cur.end)
		}
		if cur.has {
			withRanges = append(withRanges, s)
		} else {
			withoutRanges = append(withoutRanges, s)
		}
	}

	for _, rec := range sorted {
		h := has(rec)
		if h {
			st.With++
		} else {
			st.Without++
			if st.FirstWithout == "" {
				st.FirstWithout = rec.Filename
			}
		}

		if cur == nil || cur.has != h {
			flush()
			cur = &idRange{start: rec.ID, end: rec.ID, has: h}
		} else {
			cur.end = rec.ID
		}
	}
	flush()

	st.WithRanges = joinOrNone(withRanges)
	st.WithoutRanges = joinOrNone(withoutRanges)
	return st
}

func joinOrNone(ranges []string) string {
	if len(ranges) == 0 {
		return "none"
	}
	return strings.Join(ranges, ", ")
}
