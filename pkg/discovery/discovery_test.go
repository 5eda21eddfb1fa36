package discovery_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/canvaslab/atlas/pkg/discovery"
)

var _ = Describe("Source", func() {
	var root string

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		for artist, files := range map[string][]string{
			"Claude_Monet":   {"Claude_Monet_2.jpg", "Claude_Monet_1.jpg", "Claude_Monet_3.jpg"},
			"Francisco_Goya": {"Francisco_Goya_1.jpg"},
		} {
			dir := filepath.Join(root, artist)
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
			for _, f := range files {
				Expect(os.WriteFile(filepath.Join(dir, f), []byte("img"), 0o644)).To(Succeed())
			}
		}
	})

	Describe("ByArtists", func() {
		It("enumerates files sorted within each artist", func() {
			src := &discovery.Source{Root: root}
			files, err := src.ByArtists([]string{"Claude Monet"})
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(3))
			Expect(files[0].Filename()).To(Equal("Claude_Monet_1.jpg"))
			Expect(files[2].Filename()).To(Equal("Claude_Monet_3.jpg"))
			Expect(files[0].Artist).To(Equal("Claude Monet"))
		})

		It("caps files per artist", func() {
			src := &discovery.Source{Root: root, PerArtist: 2}
			files, err := src.ByArtists([]string{"Claude Monet", "Francisco Goya"})
			Expect(err).NotTo(HaveOccurred())
			Expect(files).To(HaveLen(3))
		})

		It("errors on an unknown artist folder", func() {
			src := &discovery.Source{Root: root}
			_, err := src.ByArtists([]string{"Nobody"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Artists", func() {
		It("lists artist display names sorted", func() {
			src := &discovery.Source{Root: root}
			names, err := src.Artists()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"Claude Monet", "Francisco Goya"}))
		})

		It("ignores loose files under the root", func() {
			Expect(os.WriteFile(filepath.Join(root, "README.txt"), []byte("x"), 0o644)).To(Succeed())

			src := &discovery.Source{Root: root}
			names, err := src.Artists()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(HaveLen(2))
		})
	})

	Describe("Resolve", func() {
		It("maps a record back to its path", func() {
			src := &discovery.Source{Root: root}
			path, err := src.Resolve("Claude Monet", "Claude_Monet_1.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(root, "Claude_Monet", "Claude_Monet_1.jpg")))
		})

		It("errors when the file is gone", func() {
			src := &discovery.Source{Root: root}
			_, err := src.Resolve("Claude Monet", "missing.jpg")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FolderName", func() {
		It("replaces spaces with underscores", func() {
			Expect(discovery.FolderName("Vincent van Gogh")).To(Equal("Vincent_van_Gogh"))
		})

		It("maps Dürer to the decomposed on-disk folder name", func() {
			Expect(discovery.FolderName("Albrecht Dürer")).To(Equal("Albrecht_Dürer"))
		})
	})
})
