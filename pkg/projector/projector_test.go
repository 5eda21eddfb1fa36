package projector_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/canvaslab/atlas/pkg/projector"
)

// randomItem builds an item with rows*width pseudo-random values from a fixed
// seed so specs are reproducible.
func randomItem(id int64, rows, width int, seed int64) projector.Item {
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, rows*width)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return projector.Item{ID: id, Embedding: vec}
}

var _ = Describe("Projector", func() {
	var p *projector.Projector

	BeforeEach(func() {
		var err error
		p, err = projector.New(projector.Config{RowWidth: 4})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("defaults the row width", func() {
			d, err := projector.New(projector.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.RowWidth()).To(Equal(projector.DefaultRowWidth))
		})

		It("rejects a row width below 2", func() {
			_, err := projector.New(projector.Config{RowWidth: 1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("validation", func() {
		It("rejects an empty batch", func() {
			_, err := p.Project(nil, projector.PolicyJoint)
			Expect(err).To(MatchError(projector.ErrValidation))
		})

		It("rejects an item without an id", func() {
			items := []projector.Item{{Embedding: []float32{1, 2, 3, 4}}}
			_, err := p.Project(items, projector.PolicyJoint)
			Expect(err).To(MatchError(projector.ErrValidation))
		})

		It("rejects an item without an embedding", func() {
			items := []projector.Item{{ID: 1}}
			_, err := p.Project(items, projector.PolicyJoint)
			Expect(err).To(MatchError(projector.ErrValidation))
		})

		It("rejects an embedding that does not factor into rows", func() {
			items := []projector.Item{{ID: 1, Embedding: []float32{1, 2, 3}}}
			_, err := p.Project(items, projector.PolicyJoint)
			Expect(err).To(MatchError(projector.ErrValidation))
		})

		It("rejects an unknown policy", func() {
			items := []projector.Item{randomItem(1, 3, 4, 1)}
			_, err := p.Project(items, projector.Policy("spiral"))
			Expect(err).To(MatchError(projector.ErrValidation))
		})
	})

	Describe("joint policy", func() {
		It("is deterministic across runs", func() {
			items := []projector.Item{
				randomItem(1, 3, 4, 10),
				randomItem(2, 3, 4, 20),
				randomItem(3, 3, 4, 30),
			}

			first, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())
			second, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())

			for i := range first {
				Expect(second[i].X).To(BeNumerically("~", first[i].X, 1e-6))
				Expect(second[i].Y).To(BeNumerically("~", first[i].Y, 1e-6))
			}
		})

		It("preserves input order", func() {
			items := []projector.Item{
				randomItem(7, 2, 4, 1),
				randomItem(3, 2, 4, 2),
				randomItem(5, 2, 4, 3),
			}

			coords, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())
			Expect(coords).To(HaveLen(3))
			Expect(coords[0].ID).To(Equal(int64(7)))
			Expect(coords[1].ID).To(Equal(int64(3)))
			Expect(coords[2].ID).To(Equal(int64(5)))
		})

		It("produces finite coordinates", func() {
			items := []projector.Item{
				randomItem(1, 4, 4, 100),
				randomItem(2, 4, 4, 200),
			}

			coords, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())
			for _, c := range coords {
				Expect(math.IsNaN(c.X) || math.IsInf(c.X, 0)).To(BeFalse())
				Expect(math.IsNaN(c.Y) || math.IsInf(c.Y, 0)).To(BeFalse())
			}
		})

		It("handles a batch of identical embeddings by collapsing to the origin", func() {
			item := randomItem(1, 3, 4, 42)
			items := []projector.Item{
				item,
				{ID: 2, Embedding: item.Embedding},
				{ID: 3, Embedding: item.Embedding},
			}

			coords, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())
			// All rows identical per column position means zero variance in
			// the item dimension, so centroids coincide.
			Expect(coords[0].X).To(BeNumerically("~", coords[1].X, 1e-9))
			Expect(coords[1].X).To(BeNumerically("~", coords[2].X, 1e-9))
		})
	})

	Describe("independent policy", func() {
		It("does not let other items influence an item's coordinates", func() {
			target := randomItem(1, 3, 4, 7)

			alone, err := p.Project([]projector.Item{target}, projector.PolicyIndependent)
			Expect(err).NotTo(HaveOccurred())

			crowded, err := p.Project([]projector.Item{
				target,
				randomItem(2, 3, 4, 8),
				randomItem(3, 3, 4, 9),
			}, projector.PolicyIndependent)
			Expect(err).NotTo(HaveOccurred())

			Expect(crowded[0].X).To(BeNumerically("~", alone[0].X, 1e-9))
			Expect(crowded[0].Y).To(BeNumerically("~", alone[0].Y, 1e-9))
		})

		It("diverges from the joint policy for distinct batches", func() {
			items := []projector.Item{
				randomItem(1, 3, 4, 11),
				randomItem(2, 3, 4, 22),
				randomItem(3, 3, 4, 33),
			}

			indep, err := p.Project(items, projector.PolicyIndependent)
			Expect(err).NotTo(HaveOccurred())
			joint, err := p.Project(items, projector.PolicyJoint)
			Expect(err).NotTo(HaveOccurred())

			var diverged bool
			for i := range items {
				if math.Abs(indep[i].X-joint[i].X) > 1e-6 ||
					math.Abs(indep[i].Y-joint[i].Y) > 1e-6 {
					diverged = true
				}
			}
			Expect(diverged).To(BeTrue())
		})

		It("projects a single-row embedding to the origin", func() {
			items := []projector.Item{{ID: 1, Embedding: []float32{1, 2, 3, 4}}}

			coords, err := p.Project(items, projector.PolicyIndependent)
			Expect(err).NotTo(HaveOccurred())
			Expect(coords).To(HaveLen(1))
			Expect(coords[0].X).To(BeZero())
			Expect(coords[0].Y).To(BeZero())
		})
	})
})
