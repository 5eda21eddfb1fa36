package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/canvaslab/atlas/pkg/pipeline"
	"github.com/canvaslab/atlas/pkg/projector"
	"github.com/canvaslab/atlas/pkg/store"
)

var _ = Describe("Server", func() {
	var (
		ctx    context.Context
		s      *store.Store
		server *Server
	)

	get := func(path string) (*http.Response, []byte) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		return resp, body
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		s, err = store.Open(":memory:", zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		proj, err := projector.New(projector.Config{RowWidth: 2})
		Expect(err).NotTo(HaveOccurred())

		pl, err := pipeline.New(pipeline.Config{
			Store:     s,
			Projector: proj,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, s, pl, zap.NewNop())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp, body := get("/ping")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("pong"))
		})
	})

	Describe("GET /api/points", func() {
		It("returns an empty list for an empty store", func() {
			resp, body := get("/api/points")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed PointsResponse
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed.Count).To(BeZero())
			Expect(parsed.Points).To(BeEmpty())
		})

		It("returns only rows with joint coordinates", func() {
			id, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PatchProjection(ctx, store.ByID(id), store.PolicyJoint,
				store.Projection{X: 1.5, Y: -2.5})).To(Succeed())

			_, err = s.Upsert(ctx, store.Record{Filename: "pending.jpg"})
			Expect(err).NotTo(HaveOccurred())

			resp, body := get("/api/points")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed PointsResponse
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed.Count).To(Equal(1))
			Expect(parsed.Points[0].Filename).To(Equal("a.jpg"))
			Expect(parsed.Points[0].X).To(Equal(1.5))
			Expect(parsed.Points[0].Y).To(Equal(-2.5))
		})
	})

	Describe("GET /api/status", func() {
		It("reports pipeline progress", func() {
			_, err := s.Upsert(ctx, store.Record{Filename: "a.jpg", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Upsert(ctx, store.Record{Filename: "b.jpg"})
			Expect(err).NotTo(HaveOccurred())

			resp, body := get("/api/status")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed pipeline.Status
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed.Total).To(Equal(2))
			Expect(parsed.Embeddings.With).To(Equal(1))
			Expect(parsed.Embeddings.Without).To(Equal(1))
		})
	})

	Describe("GET /api/items/:ref", func() {
		var id int64

		BeforeEach(func() {
			var err error
			id, err = s.Upsert(ctx, store.Record{
				Artist:    "Monet",
				Filename:  "a.jpg",
				Embedding: []float32{1, 2},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("resolves a numeric ref as an id", func() {
			resp, body := get("/api/items/1")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed ItemResponse
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed.ID).To(Equal(id))
			Expect(parsed.Artist).To(Equal("Monet"))
			Expect(parsed.HasEmbedding).To(BeTrue())
		})

		It("resolves a non-numeric ref as a filename", func() {
			resp, body := get("/api/items/a.jpg")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var parsed ItemResponse
			Expect(json.Unmarshal(body, &parsed)).To(Succeed())
			Expect(parsed.Filename).To(Equal("a.jpg"))
		})

		It("never includes the raw embedding", func() {
			_, body := get("/api/items/a.jpg")
			Expect(string(body)).NotTo(ContainSubstring("embedding\":["))
			Expect(string(body)).To(ContainSubstring("has_embedding"))
		})

		It("returns 404 for unknown items", func() {
			resp, _ := get("/api/items/nope.jpg")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
