// Package thumbs generates fixed-width JPEG thumbnails for dataset images
// using an asynchronous worker pool. The pool decouples decode and resize work
// from the enqueueing command so large datasets make use of every core.
package thumbs

import (
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	// Register decoders for the formats found in the dataset.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

var (
	defaultNumWorkers   uint = 4
	defaultJobQueueSize uint = 256
	defaultMaxWidth     uint = 256

	jpegQuality = 85
)

// Job is a single source image to thumbnail.
type Job struct {
	Source string
	Dest   string
}

// Config is the configuration options for the thumbnail pool.
type Config struct {
	// MaxWidth is the output width in pixels; height preserves aspect ratio.
	MaxWidth uint

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel.
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes thumbnail jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.Mutex
	made   int
	failed []Failure
}

// Failure records one source that could not be thumbnailed.
type Failure struct {
	Source string
	Reason string
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.MaxWidth == 0 {
		c.MaxWidth = defaultMaxWidth
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job
// being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("thumbnail job queued", zap.String("source", job.Source))
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("source", job.Source),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// Results reports how many thumbnails were written and which sources failed.
// Only meaningful after Close has returned.
func (p *Pool) Results() (int, []Failure) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.made, p.failed
}

// worker is the inner worker thread that continuously pulls jobs off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("thumbnail worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	if err := p.thumbnail(job); err != nil {
		p.logger.Warn("thumbnail failed",
			zap.String("source", job.Source),
			zap.Error(err),
		)

		p.mu.Lock()
		p.failed = append(p.failed, Failure{Source: job.Source, Reason: err.Error()})
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.made++
	p.mu.Unlock()

	p.logger.Debug("thumbnail written", zap.String("dest", job.Dest))
}

func (p *Pool) thumbnail(job Job) error {
	src, err := os.Open(job.Source)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", job.Source, err)
	}

	scaled := scale(img, int(p.config.MaxWidth))

	if err := os.MkdirAll(filepath.Dir(job.Dest), 0o755); err != nil {
		return fmt.Errorf("creating thumbnail dir: %w", err)
	}

	out, err := os.Create(job.Dest)
	if err != nil {
		return fmt.Errorf("creating thumbnail: %w", err)
	}

	if err := jpeg.Encode(out, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		out.Close()
		return fmt.Errorf("encoding thumbnail: %w", err)
	}

	return out.Close()
}

// scale resizes img down to maxWidth preserving aspect ratio. Images already
// at or under maxWidth pass through unscaled.
func scale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return img
	}

	height := bounds.Dy() * maxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// DestPath maps a source filename to its thumbnail path under dir. The
// extension is normalized to .jpg since every thumbnail is JPEG encoded.
func DestPath(dir, filename string) string {
	ext := filepath.Ext(filename)
	return filepath.Join(dir, strings.TrimSuffix(filename, ext)+".jpg")
}

// Verify decodes every thumbnail under dir, returning the count of readable
// files and the paths of any that fail to decode.
func Verify(dir string) (int, []string, error) {
	var ok int
	var bad []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			bad = append(bad, path)
			return nil
		}
		_, _, decodeErr := image.Decode(f)
		f.Close()

		if decodeErr != nil {
			bad = append(bad, path)
			return nil
		}

		ok++
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("verifying thumbnails: %w", err)
	}

	return ok, bad, nil
}

// Missing returns the source filenames that have no thumbnail under dir.
func Missing(filenames []string, dir string) []string {
	var missing []string
	for _, name := range filenames {
		if _, err := os.Stat(DestPath(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}
