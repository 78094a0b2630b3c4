package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"blobcache/internal/config"
	blobcopier "blobcache/internal/copier"
	"blobcache/internal/core/logger"
	"blobcache/internal/core/progress"
	"blobcache/internal/core/types"
	"blobcache/internal/pipe"
	"blobcache/internal/quota"
	"blobcache/internal/runner"
	"blobcache/internal/source"
	"blobcache/internal/storage"
	"blobcache/internal/transfer"
	"blobcache/internal/transport"

	"github.com/alecthomas/kong"
)

type FetchCmd struct {
	Sources    []string          `arg:"" help:"Sources to fetch: http(s) URLs, s3://bucket/key objects, or local file paths"`
	Key        string            `short:"k" long:"key" help:"Cache entry key (single source only; defaults to the source basename)"`
	Stream     int               `short:"s" long:"stream" default:"1" help:"Entry stream index to write"`
	Headers    map[string]string `short:"H" long:"header" help:"Extra HTTP request headers"`
	Workers    int               `short:"w" long:"workers" default:"4" help:"Concurrent fetches"`
	NoProgress bool              `long:"no-progress" help:"Disable progress bars"`
}

type CatCmd struct {
	Key    string `arg:"" help:"Cache entry key"`
	Stream int    `short:"s" long:"stream" default:"1" help:"Entry stream index to read"`
}

type StatCmd struct {
	Key string `arg:"" help:"Cache entry key"`
}

type CLI struct {
	ConfigFile string           `short:"c" long:"config" help:"Config file path"`
	Debug      bool             `short:"d" long:"debug" help:"Enable debug logging"`
	Version    kong.VersionFlag `short:"v" long:"version" help:"Print version and exit"`

	Fetch FetchCmd `cmd:"fetch" help:"Stream sources into the cache"`
	Cat   CatCmd   `cmd:"cat" help:"Write a cached stream to stdout"`
	Stat  StatCmd  `cmd:"stat" help:"Show the streams stored for an entry"`
}

func loadConfig(cliRoot *CLI) (*config.Config, error) {
	cfg, err := config.LoadConfig(config.ResolveConfigPath(cliRoot.ConfigFile))
	if err != nil {
		return nil, err
	}
	if cliRoot.Debug || cfg.Debug {
		logger.SetDefaultLevel(logger.LevelDebug)
	}
	return cfg, nil
}

// buildSource maps a source argument to a byte source and its declared
// size. A size of -1 means the source does not declare one up front.
func buildSource(ctx context.Context, cfg *config.Config, raw string, headers map[string]string, opts ...transfer.Option) (source.Source, int64, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Not a URL (single-letter schemes are Windows drive letters).
		return buildFileSource(raw, opts...)
	}

	switch u.Scheme {
	case "http", "https":
		src := source.NewHTTPSource(raw,
			source.HTTPWithHeaders(headers),
			source.HTTPWithTransferOptions(opts...),
		)
		size, err := src.Size(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve size of %s: %w", raw, err)
		}
		return src, size, nil
	case "s3":
		bucket := u.Host
		key := strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, 0, fmt.Errorf("invalid s3 source %q, want s3://bucket/key", raw)
		}
		t, err := transport.NewS3Transfer(transport.S3Config{
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, 0, err
		}
		src := source.NewS3Source(t, bucket, key, source.S3WithTransferOptions(opts...))
		size, err := src.Size(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resolve size of %s: %w", raw, err)
		}
		return src, size, nil
	case "file":
		return buildFileSource(u.Path, opts...)
	default:
		return nil, 0, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func buildFileSource(p string, opts ...transfer.Option) (source.Source, int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return source.NewReaderSource(f, opts...), info.Size(), nil
}

// entryKey derives a cache key from the source argument.
func entryKey(raw string) string {
	if u, err := url.Parse(raw); err == nil && len(u.Scheme) > 1 {
		if name := path.Base(u.Path); name != "." && name != "/" {
			return name
		}
		return u.Host
	}
	return filepath.Base(raw)
}

func (c *FetchCmd) Run(cliRoot *CLI) error {
	ctx, cancel := types.DefaultSignalNotifyContext()
	defer cancel()

	cfg, err := loadConfig(cliRoot)
	if err != nil {
		return err
	}
	if c.Key != "" && len(c.Sources) > 1 {
		return fmt.Errorf("--key applies to a single source, got %d", len(c.Sources))
	}

	log := logger.NewLogger(logger.WithName("fetch"))
	usage := quota.NewAccountant()

	var bars *progress.Progress
	if !c.NoProgress {
		bars = progress.NewProgress()
	}

	pool := runner.NewPool(ctx, "fetch",
		runner.WithPoolWorkers(c.Workers),
		runner.WithPoolLogger(log),
	)

	for _, raw := range c.Sources {
		key := c.Key
		if key == "" {
			key = entryKey(raw)
		}
		job := runner.NewJob(key, c.fetchHandler(cfg, usage, bars, raw, key))
		if err := pool.Submit(job); err != nil {
			return err
		}
	}

	failed := 0
	for range c.Sources {
		job, err := pool.Wait()
		if err != nil {
			return err
		}
		if job.Tracker().IsFailed() {
			failed++
			log.Error("fetch failed", "key", job.Name(), "error", job.Tracker().Err())
			continue
		}
		log.Info("fetch complete",
			"key", job.Name(),
			"size", types.Bytes(job.Tracker().Current()).String(),
			"speed", job.Tracker().SpeedBytes(),
			"duration", job.Tracker().Duration().Round(time.Millisecond),
		)
	}
	if bars != nil {
		bars.Wait()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(c.Sources))
	}
	return nil
}

func (c *FetchCmd) fetchHandler(cfg *config.Config, usage *quota.Accountant, bars *progress.Progress, raw, key string) runner.JobHandler {
	return func(ctx context.Context, job *runner.Job) error {
		limiter := transfer.NewRateLimiter(cfg.Transfer.RateLimit, cfg.Transfer.RateBurst)

		lastTick := time.Now()
		opts := []transfer.Option{
			transfer.WithReadLimiter(limiter),
			transfer.WithProgressCallback(func(n int64) {
				job.Tracker().IncCurrent(n)
				if bars != nil {
					now := time.Now()
					bars.IncrementBar(key, n, now.Sub(lastTick))
					lastTick = now
				}
			}),
		}

		src, size, err := buildSource(ctx, cfg, raw, c.Headers, opts...)
		if err != nil {
			return err
		}
		if size >= 0 {
			job.Tracker().SetTotal(size)
		}
		if bars != nil {
			bars.AddBar(key, key, size)
			defer bars.CloseBar(key)
		}

		entry, err := storage.OpenEntry(cfg.Cache.BasePath, key)
		if err != nil {
			return err
		}
		defer entry.Close()

		seq := runner.NewSequence(key, runner.WithSequenceLogger(job.Logger()))
		defer seq.Close()
		cp := blobcopier.NewCopier(seq, usage, blobcopier.WithLogger(job.Logger()))

		result := make(chan bool, 1)
		err = cp.Transfer(ctx, entry, c.Stream, src, size, func(_ storage.Entry, success bool) {
			result <- success
		})
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			cp.Close()
			return ctx.Err()
		case success := <-result:
			if !success {
				return fmt.Errorf("transfer of %s failed", raw)
			}
		}
		return nil
	}
}

func (c *CatCmd) Run(cliRoot *CLI) error {
	cfg, err := loadConfig(cliRoot)
	if err != nil {
		return err
	}

	entry, err := storage.OpenEntry(cfg.Cache.BasePath, c.Key)
	if err != nil {
		return err
	}
	defer entry.Close()

	streams, err := entry.Streams()
	if err != nil {
		return err
	}
	if !containsInt(streams, c.Stream) {
		return fmt.Errorf("entry %s has no stream %d", c.Key, c.Stream)
	}

	buf := make([]byte, pipe.MaxCapacity)
	var offset int64
	for {
		n, err := entry.ReadRange(c.Stream, offset, buf)
		if n > 0 {
			if _, werr := os.Stdout.Write(buf[:n]); werr != nil {
				return werr
			}
			offset += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *StatCmd) Run(cliRoot *CLI) error {
	cfg, err := loadConfig(cliRoot)
	if err != nil {
		return err
	}

	entry, err := storage.OpenEntry(cfg.Cache.BasePath, c.Key)
	if err != nil {
		return err
	}
	defer entry.Close()

	streams, err := entry.Streams()
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		return fmt.Errorf("entry %s has no streams", c.Key)
	}

	fmt.Printf("Entry: %s\n", entry.Key())
	for _, stream := range streams {
		size, err := entry.StreamSize(stream)
		if err != nil {
			return err
		}
		fmt.Printf("  stream %d: %s (%d bytes)\n", stream, types.Bytes(size), size)
	}
	return nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func main() {
	var cliRoot CLI
	kctx := kong.Parse(
		&cliRoot,
		kong.Vars{
			"version": "0.1.0",
		},
		kong.Name("blobcache"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Description("blobcache - Stream blobs from remote sources into a local disk cache"),
	)
	if err := kctx.Run(&cliRoot); err != nil {
		kctx.FatalIfErrorf(err)
	}
}
