// Package store persists per-image records: identity, the provider embedding,
// and the 2-D projections derived from it. It is the single source of truth for
// the pipeline; every phase reads its pending set from here and writes results
// straight back.
package store

import "strconv"

// Policy selects which projection column pair an operation targets.
// The two families are fully independent: clearing or patching one never
// touches the other.
type Policy string

const (
	// PolicyIndependent is a per-item PCA fit; coordinates do not depend on
	// any other record.
	PolicyIndependent Policy = "independent"

	// PolicyJoint is a whole-batch PCA fit; coordinates are relative to every
	// other record in the batch. This is the policy the viewer reads.
	PolicyJoint Policy = "joint"
)

// Valid reports whether p names a known projection policy.
func (p Policy) Valid() bool {
	return p == PolicyIndependent || p == PolicyJoint
}

// Projection is a 2-D coordinate pair for one record under one policy.
type Projection struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is one row of the items table. Optional fields use nil (or the empty
// string for Artist) to mean "absent"; Upsert only overwrites a field when a
// non-absent value is supplied.
type Record struct {
	ID       int64
	Artist   string
	Filename string

	// Embedding is the provider vector, nil when not yet embedded.
	Embedding []float32

	// Independent and Joint are the per-policy coordinate pairs,
	// nil when not yet projected.
	Independent *Projection
	Joint       *Projection

	// HasEmbedding is derived on read for convenient filtering.
	HasEmbedding bool
}

// Point is the serving shape for the viewer: one joint-policy coordinate pair.
type Point struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Ref identifies a record by ID or by filename in a single parameter.
type Ref struct {
	id       int64
	filename string
}

// ByID returns a Ref resolving by primary key.
func ByID(id int64) Ref {
	return Ref{id: id}
}

// ByFilename returns a Ref resolving by the unique filename key.
func ByFilename(name string) Ref {
	return Ref{filename: name}
}

// String returns the identifier for diagnostics, preferring the filename.
func (r Ref) String() string {
	if r.filename != "" {
		return r.filename
	}
	return "id=" + strconv.FormatInt(r.id, 10)
}
