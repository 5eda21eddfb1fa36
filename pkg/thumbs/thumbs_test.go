package thumbs_test

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/canvaslab/atlas/pkg/thumbs"
)

func writePNG(path string, width, height int) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	Expect(png.Encode(f, img)).To(Succeed())
}

func decodeSize(path string) (int, int) {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()

	img, err := jpeg.Decode(f)
	Expect(err).NotTo(HaveOccurred())
	return img.Bounds().Dx(), img.Bounds().Dy()
}

var _ = Describe("Thumbs", func() {
	var srcDir, destDir string

	BeforeEach(func() {
		srcDir = GinkgoT().TempDir()
		destDir = GinkgoT().TempDir()
	})

	Describe("Pool", func() {
		It("writes width-capped thumbnails preserving aspect ratio", func() {
			source := filepath.Join(srcDir, "wide.png")
			writePNG(source, 400, 200)

			pool, err := thumbs.NewPool(&thumbs.Config{MaxWidth: 100, NumWorkers: 2})
			Expect(err).NotTo(HaveOccurred())

			dest := thumbs.DestPath(destDir, "wide.png")
			Expect(pool.Enqueue(thumbs.Job{Source: source, Dest: dest})).To(BeTrue())
			pool.Close()

			made, failed := pool.Results()
			Expect(made).To(Equal(1))
			Expect(failed).To(BeEmpty())

			w, h := decodeSize(dest)
			Expect(w).To(Equal(100))
			Expect(h).To(Equal(50))
		})

		It("passes small images through without upscaling", func() {
			source := filepath.Join(srcDir, "small.png")
			writePNG(source, 40, 30)

			pool, err := thumbs.NewPool(&thumbs.Config{MaxWidth: 100})
			Expect(err).NotTo(HaveOccurred())

			dest := thumbs.DestPath(destDir, "small.png")
			Expect(pool.Enqueue(thumbs.Job{Source: source, Dest: dest})).To(BeTrue())
			pool.Close()

			w, h := decodeSize(dest)
			Expect(w).To(Equal(40))
			Expect(h).To(Equal(30))
		})

		It("records failures for unreadable sources without stopping the pool", func() {
			broken := filepath.Join(srcDir, "broken.png")
			Expect(os.WriteFile(broken, []byte("not an image"), 0o600)).To(Succeed())

			good := filepath.Join(srcDir, "good.png")
			writePNG(good, 120, 120)

			pool, err := thumbs.NewPool(&thumbs.Config{MaxWidth: 100})
			Expect(err).NotTo(HaveOccurred())

			Expect(pool.Enqueue(thumbs.Job{Source: broken, Dest: thumbs.DestPath(destDir, "broken.png")})).To(BeTrue())
			Expect(pool.Enqueue(thumbs.Job{Source: good, Dest: thumbs.DestPath(destDir, "good.png")})).To(BeTrue())
			pool.Close()

			made, failed := pool.Results()
			Expect(made).To(Equal(1))
			Expect(failed).To(HaveLen(1))
			Expect(failed[0].Source).To(Equal(broken))
		})
	})

	Describe("DestPath", func() {
		It("normalizes the extension to .jpg", func() {
			Expect(thumbs.DestPath("/t", "starry-night.png")).To(Equal("/t/starry-night.jpg"))
			Expect(thumbs.DestPath("/t", "waterlilies.jpeg")).To(Equal("/t/waterlilies.jpg"))
			Expect(thumbs.DestPath("/t", "noext")).To(Equal("/t/noext.jpg"))
		})
	})

	Describe("Verify", func() {
		It("counts readable thumbnails and flags corrupt ones", func() {
			good := filepath.Join(srcDir, "a.png")
			writePNG(good, 50, 50)

			pool, err := thumbs.NewPool(&thumbs.Config{MaxWidth: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.Enqueue(thumbs.Job{Source: good, Dest: thumbs.DestPath(destDir, "a.png")})).To(BeTrue())
			pool.Close()

			corrupt := filepath.Join(destDir, "corrupt.jpg")
			Expect(os.WriteFile(corrupt, []byte("junk"), 0o600)).To(Succeed())

			ok, bad, err := thumbs.Verify(destDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(Equal(1))
			Expect(bad).To(ConsistOf(corrupt))
		})
	})

	Describe("Missing", func() {
		It("lists sources without a thumbnail", func() {
			source := filepath.Join(srcDir, "have.png")
			writePNG(source, 50, 50)

			pool, err := thumbs.NewPool(&thumbs.Config{MaxWidth: 100})
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.Enqueue(thumbs.Job{Source: source, Dest: thumbs.DestPath(destDir, "have.png")})).To(BeTrue())
			pool.Close()

			missing := thumbs.Missing([]string{"have.png", "lost.png"}, destDir)
			Expect(missing).To(ConsistOf("lost.png"))
		})
	})
})
