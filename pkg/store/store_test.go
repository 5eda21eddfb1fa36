package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/store"
)

var _ = Describe("Store", func() {
	var (
		s   *store.Store
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		s, err = store.Open(":memory:", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	Describe("Open", func() {
		It("rejects an empty path", func() {
			_, err := store.Open("", zap.NewNop())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})
	})

	Describe("Upsert", func() {
		It("inserts a placeholder with no embedding", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Artist: "Monet"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(BeNumerically(">", 0))

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].HasEmbedding).To(BeFalse())
			Expect(all[0].Artist).To(Equal("Monet"))
		})

		It("is idempotent on filename", func() {
			id1, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			id2, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1))

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("merges fields instead of replacing the row", func() {
			_, err := s.Upsert(ctx, store.Record{
				Filename:  "a.jpg",
				Embedding: []float32{1, 2, 3, 4},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Upsert(ctx, store.Record{
				Filename: "a.jpg",
				Joint:    &store.Projection{X: 0.5, Y: -0.5},
			})
			Expect(err).NotTo(HaveOccurred())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].Embedding).To(Equal([]float32{1, 2, 3, 4}))
			Expect(all[0].Joint).To(Equal(&store.Projection{X: 0.5, Y: -0.5}))
		})

		It("keeps the artist when a later upsert omits it", func() {
			_, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Artist: "Monet"})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all[0].Artist).To(Equal("Monet"))
		})

		It("updates by id when given", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())

			got, err := s.Upsert(ctx, store.Record{ID: id, Artist: "Goya"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(id))

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all[0].Artist).To(Equal("Goya"))
		})

		It("errors when updating an unknown id", func() {
			_, err := s.Upsert(ctx, store.Record{ID: 999, Artist: "Goya"})
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Embedding", func() {
		It("round-trips float32 vectors", func() {
			vec := []float32{0.25, -1.5, 3.75, 0}
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: vec})
			Expect(err).NotTo(HaveOccurred())

			got, err := s.Embedding(ctx, store.ByID(id))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(vec))
		})

		It("resolves by filename too", func() {
			vec := []float32{1, 2}
			_, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: vec})
			Expect(err).NotTo(HaveOccurred())

			got, err := s.Embedding(ctx, store.ByFilename("a.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(vec))
		})

		It("returns nil for a placeholder row", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())

			got, err := s.Embedding(ctx, store.ByID(id))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("returns ErrNotFound for a missing row", func() {
			_, err := s.Embedding(ctx, store.ByFilename("nope.jpg"))
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Get", func() {
		It("returns the full record by id or filename", func() {
			vec := []float32{1, 2, 3, 4}
			id, err := s.Upsert(ctx, store.Record{Artist: "Monet", Filename: "a.jpg", Embedding: vec})
			Expect(err).NotTo(HaveOccurred())

			rec, err := s.Get(ctx, store.ByID(id))
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Artist).To(Equal("Monet"))
			Expect(rec.Filename).To(Equal("a.jpg"))
			Expect(rec.HasEmbedding).To(BeTrue())
			Expect(rec.Embedding).To(Equal(vec))

			byName, err := s.Get(ctx, store.ByFilename("a.jpg"))
			Expect(err).NotTo(HaveOccurred())
			Expect(byName.ID).To(Equal(id))
		})

		It("returns ErrNotFound for a missing row", func() {
			_, err := s.Get(ctx, store.ByFilename("nope.jpg"))
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("PatchProjection", func() {
		var id int64

		BeforeEach(func() {
			var err error
			id, err = s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("leaves the other policy untouched", func() {
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyJoint,
				store.Projection{X: 1, Y: 2})).To(Succeed())
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyIndependent,
				store.Projection{X: 3, Y: 4})).To(Succeed())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all[0].Joint).To(Equal(&store.Projection{X: 1, Y: 2}))
			Expect(all[0].Independent).To(Equal(&store.Projection{X: 3, Y: 4}))
		})

		It("rejects an unknown policy", func() {
			err := s.PatchProjection(ctx, store.ByID(id), store.Policy("weird"), store.Projection{})
			Expect(err).To(MatchError(store.ErrBadPolicy))
		})
	})

	Describe("ClearProjections", func() {
		It("clears only the named policy family", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyJoint,
				store.Projection{X: 1, Y: 2})).To(Succeed())
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyIndependent,
				store.Projection{X: 3, Y: 4})).To(Succeed())

			Expect(s.ClearProjections(ctx, store.PolicyJoint)).To(Succeed())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all[0].Joint).To(BeNil())
			Expect(all[0].Independent).To(Equal(&store.Projection{X: 3, Y: 4}))
		})
	})

	Describe("ClearEmbedding", func() {
		It("keeps the row but drops the vector", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.ClearEmbedding(ctx, store.ByID(id))).To(Succeed())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].HasEmbedding).To(BeFalse())
		})
	})

	Describe("Points", func() {
		It("returns only rows with complete joint coordinates", func() {
			id1, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Upsert(ctx, store.Record{Filename: "b.jpg"})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.PatchProjection(ctx, store.ByID(id1), store.PolicyJoint,
				store.Projection{X: -1, Y: 1})).To(Succeed())

			points, err := s.Points(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(HaveLen(1))
			Expect(points[0].ID).To(Equal(id1))
			Expect(points[0].Filename).To(Equal("a.jpg"))
			Expect(points[0].X).To(Equal(-1.0))
			Expect(points[0].Y).To(Equal(1.0))
		})

		It("excludes independent-only rows", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyIndependent,
				store.Projection{X: 1, Y: 2})).To(Succeed())

			points, err := s.Points(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(points).To(BeEmpty())
		})
	})

	Describe("DeleteAll", func() {
		It("empties the table", func() {
			_, err := s.Upsert(ctx, store.Record{Filename: "a.jpg"})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.DeleteAll(ctx)).To(Succeed())

			all, err := s.All(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})
})
