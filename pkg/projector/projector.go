// Package projector reduces stored embeddings to 2-D coordinates with PCA.
//
// Flat provider vectors are reshaped into fixed-width row matrices before the
// fit, so component analysis runs over the rows' sub-structure rather than one
// long vector. Two policies exist: an independent fit per item, and a joint
// fit over every row of every item in the call.
package projector

import (
	"errors"
	"fmt"
)

// DefaultRowWidth is the reshape width applied to flat embeddings. The
// provider's vectors factor naturally into rows of 32 values; override via
// Config when the provider's dimensionality differs.
const DefaultRowWidth = 32

// ErrValidation is returned for malformed projector input: an empty batch, an
// item missing its id or embedding, or an embedding whose length does not
// factor into RowWidth columns. Validation failures are fatal to the call and
// never retried.
var ErrValidation = errors.New("invalid projection input")

// Policy selects how items in one call influence each other.
type Policy string

const (
	// PolicyIndependent fits a separate PCA model per item; an item's
	// coordinates never depend on any other item. With few rows per item the
	// fit has little explanatory power and results cluster near the origin.
	PolicyIndependent Policy = "independent"

	// PolicyJoint fits one PCA model on the union of all rows from all items,
	// so every item influences every other item's coordinates.
	PolicyJoint Policy = "joint"
)

// Item is one embedding to project.
type Item struct {
	ID        int64
	Embedding []float32
}

// Coord is one item's 2-D output coordinate.
type Coord struct {
	ID int64
	X  float64
	Y  float64
}

// Config holds projector settings.
type Config struct {
	// RowWidth is the reshape width. Defaults to DefaultRowWidth.
	RowWidth int
}

// Projector computes 2-D projections from embeddings.
//
// One code path serves both policies: input matrices are centered and scaled
// to unit variance before the fit. Single-item calls go through the same path
// as multi-item calls.
type Projector struct {
	rowWidth int
}

// New creates a Projector.
func New(cfg Config) (*Projector, error) {
	w := cfg.RowWidth
	if w == 0 {
		w = DefaultRowWidth
	}
	if w < 2 {
		return nil, fmt.Errorf("row width must be at least 2, got %d", w)
	}
	return &Projector{rowWidth: w}, nil
}

// RowWidth returns the configured reshape width.
func (p *Projector) RowWidth() int {
	return p.rowWidth
}

// Project computes one 2-D coordinate per item under the given policy.
// Output order matches input order for both policies.
func (p *Projector) Project(items []Item, policy Policy) ([]Coord, error) {
	if err := p.validate(items); err != nil {
		return nil, err
	}

	switch policy {
	case PolicyIndependent:
		return p.projectIndependent(items)
	case PolicyJoint:
		return p.projectJoint(items)
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrValidation, policy)
	}
}

func (p *Projector) validate(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty batch", ErrValidation)
	}
	for i, item := range items {
		if item.ID == 0 {
			return fmt.Errorf("%w: item %d has no id", ErrValidation, i)
		}
		if len(item.Embedding) == 0 {
			return fmt.Errorf("%w: item id=%d has no embedding", ErrValidation, item.ID)
		}
		if len(item.Embedding)%p.rowWidth != 0 {
			return fmt.Errorf("%w: item id=%d embedding length %d is not a multiple of row width %d",
				ErrValidation, item.ID, len(item.Embedding), p.rowWidth)
		}
	}
	return nil
}

// projectIndependent fits a separate model per item over that item's rows
// alone.
func (p *Projector) projectIndependent(items []Item) ([]Coord, error) {
	out := make([]Coord, 0, len(items))
	for _, item := range items {
		m := p.reshape(item.Embedding)
		coords, err := fitProject(m)
		if err != nil {
			return nil, fmt.Errorf("item id=%d: %w", item.ID, err)
		}
		x, y := centroid(coords)
		out = append(out, Coord{ID: item.ID, X: x, Y: y})
	}
	return out, nil
}

// projectJoint fits one model over the union of all items' rows, projects
// every row, and collapses each item's rows to their centroid.
func (p *Projector) projectJoint(items []Item) ([]Coord, error) {
	var total int
	for _, item := range items {
		total += len(item.Embedding) / p.rowWidth
	}

	union := make([]float32, 0, total*p.rowWidth)
	for _, item := range items {
		union = append(union, item.Embedding...)
	}

	coords, err := fitProject(p.reshape(union))
	if err != nil {
		return nil, err
	}

	out := make([]Coord, 0, len(items))
	offset := 0
	for _, item := range items {
		n := len(item.Embedding) / p.rowWidth
		x, y := centroid(coords[offset : offset+n])
		out = append(out, Coord{ID: item.ID, X: x, Y: y})
		offset += n
	}
	return out, nil
}

// reshape views a flat vector as an n×rowWidth matrix in row-major order.
func (p *Projector) reshape(flat []float32) [][]float64 {
	n := len(flat) / p.rowWidth
	rows := make([][]float64, n)
	for i := range n {
		row := make([]float64, p.rowWidth)
		for j := range p.rowWidth {
			row[j] = float64(flat[i*p.rowWidth+j])
		}
		rows[i] = row
	}
	return rows
}

func centroid(coords [][2]float64) (float64, float64) {
	var x, y float64
	for _, c := range coords {
		x += c[0]
		y += c[1]
	}
	n := float64(len(coords))
	return x / n, y / n
}
