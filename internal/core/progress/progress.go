package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress renders one bar per in-flight transfer.
type Progress struct {
	mu        sync.Mutex
	container *mpb.Progress
	bars      map[string]*mpb.Bar
}

type Option func() mpb.ContainerOption

// WithOutput sets the output for the progress container.
func WithOutput(w io.Writer) Option {
	return func() mpb.ContainerOption {
		return mpb.WithOutput(w)
	}
}

// WithRefreshRate sets the refresh rate for the progress container.
func WithRefreshRate(refreshRate time.Duration) Option {
	return func() mpb.ContainerOption {
		return mpb.WithRefreshRate(refreshRate)
	}
}

// NewProgress creates a new progress container.
func NewProgress(opts ...Option) *Progress {
	containerOpts := []mpb.ContainerOption{
		mpb.WithOutput(os.Stdout),
		mpb.WithRefreshRate(150 * time.Millisecond),
	}
	for _, opt := range opts {
		containerOpts = append(containerOpts, opt())
	}
	return &Progress{
		container: mpb.New(containerOpts...),
		bars:      make(map[string]*mpb.Bar),
	}
}

func barOptions(description string) []mpb.BarOption {
	return []mpb.BarOption{
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Spinner(spinner, decor.WCSyncSpaceR),
			decor.Name(description, decor.WCSyncSpaceR),
			decor.CountersKibiByte("%.2f/%.2f", decor.WCSyncSpace),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.EwmaSpeed(decor.SizeB1024(0), "%.2f", 30, decor.WCSyncSpace),
			decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace),
		),
	}
}

// AddBar adds a bar for the given transfer key.
func (g *Progress) AddBar(key, description string, size int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bars[key] = g.container.AddBar(size, barOptions(description)...)
}

// IncrementBar advances the bar for the given transfer key.
func (g *Progress) IncrementBar(key string, n int64, duration time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if bar, ok := g.bars[key]; ok {
		bar.EwmaIncrInt64(n, duration)
	}
}

// CloseBar removes the bar for the given transfer key.
func (g *Progress) CloseBar(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if bar, ok := g.bars[key]; ok {
		bar.Abort(true)
		delete(g.bars, key)
	}
}

// Wait blocks until all bars have completed rendering.
func (g *Progress) Wait() {
	g.container.Wait()
}
