// Package scheduler drives rule application over a file set: chunked
// bounded-concurrency dispatch, memory-aware pacing, per-file failure
// isolation, and progress reporting.
package scheduler

import (
	"context"
	"io/fs"
	"runtime"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/classmerge/pkg/rules"
	"github.com/walteh/classmerge/pkg/session"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const (
	maxConcurrency = 8
	maxChunkSize   = 50
	// chunksPerWorker keeps several chunks in flight per worker so a slow
	// chunk does not stall the pool.
	chunksPerWorker = 4

	defaultMemoryLimitMB = 512

	// autoSequentialThreshold is the file count below which ProcessAuto
	// skips the pool entirely.
	autoSequentialThreshold = 10
	// autoLowMemoryMB marks a run memory-constrained enough to force
	// sequential processing.
	autoLowMemoryMB = 128
)

// Progress is invoked once per completed file with the running completed
// count; under concurrency the invocation order reflects completion
// order, not input order.
type Progress func(done, total int, path string)

// Options tunes a processing run. Zero values take defaults.
type Options struct {
	// Concurrency is the worker limit; defaults to half the logical
	// cores, clamped to [1, 8].
	Concurrency int
	// ChunkSize is the number of files per dispatched chunk; defaults to
	// enough chunks for several per worker, clamped to [1, 50].
	ChunkSize int
	// MemoryLimitMB pauses dispatch while process heap usage exceeds the
	// ceiling; defaults to 512. Negative disables the gate.
	MemoryLimitMB int
	// Progress, when set, receives per-file completion callbacks.
	Progress Progress
	// FS is the filesystem collaborator; defaults to the OS filesystem.
	FS afero.Fs
	// DryRun applies rules but skips the write-back.
	DryRun bool
}

func (o Options) withDefaults(total int) Options {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU() / 2
	}
	o.Concurrency = clamp(o.Concurrency, 1, maxConcurrency)

	if o.ChunkSize <= 0 {
		o.ChunkSize = total / (o.Concurrency * chunksPerWorker)
	}
	o.ChunkSize = clamp(o.ChunkSize, 1, maxChunkSize)

	if o.MemoryLimitMB == 0 {
		o.MemoryLimitMB = defaultMemoryLimitMB
	}

	if o.FS == nil {
		o.FS = afero.NewOsFs()
	}
	return o
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Result is the outcome for one file, immutable once produced.
type Result struct {
	Path string
	// Changed counts the rules that reported a change for this file.
	Changed int
	Err     error
}

// Success reports whether the file was processed without a classified
// failure.
func (r Result) Success() bool {
	return r.Err == nil
}

// ErrAborted marks files the run never reached because a fatal or
// escalated error stopped it.
var ErrAborted = errors.Base("run aborted before this file was processed")

// Process applies the named rules to every path with bounded
// concurrency. Chunk membership follows input order; files within a
// chunk run sequentially. Per-file failures become failed Results and do
// not abort sibling files; non-recoverable or escalated failures abort
// the whole run.
func Process(ctx context.Context, paths, ruleNames []string, table rules.Table, sess *session.Session, opts Options) ([]Result, error) {
	opts = opts.withDefaults(len(paths))
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	zerolog.Ctx(ctx).Debug().
		Int("files", len(paths)).
		Int("concurrency", opts.Concurrency).
		Int("chunk_size", opts.ChunkSize).
		Int("memory_limit_mb", opts.MemoryLimitMB).
		Msg("starting concurrent processing")

	for start := 0; start < len(paths); start += opts.ChunkSize {
		end := min(start+opts.ChunkSize, len(paths))
		chunk := paths[start:end]
		offset := start

		// Gate each new batch on the memory ceiling; the pool's SetLimit
		// makes this loop block while all workers are busy, so the check
		// sits right before capacity frees up.
		waitForMemory(gctx, opts.MemoryLimitMB)

		g.Go(func() error {
			for i, path := range chunk {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				res := processOne(gctx, path, ruleNames, table, sess, opts)
				results[offset+i] = res

				done := reportResult(sess, res)
				if opts.Progress != nil {
					opts.Progress(int(done), len(paths), path)
				}

				if res.Err != nil {
					cerr := session.Classify(res.Err, path)
					if !sess.ShouldContinue(cerr) {
						return errors.Errorf("stopping run after %s errors: %w", cerr.Kind, cerr)
					}
				}
			}
			return nil
		})
	}

	err := g.Wait()
	markUnprocessed(results, paths)
	return results, err
}

// ProcessSequential is the strictly ordered fallback: same per-file
// logic, no goroutines.
func ProcessSequential(ctx context.Context, paths, ruleNames []string, table rules.Table, sess *session.Session, opts Options) ([]Result, error) {
	opts = opts.withDefaults(len(paths))
	results := make([]Result, len(paths))

	for i, path := range paths {
		res := processOne(ctx, path, ruleNames, table, sess, opts)
		results[i] = res

		done := reportResult(sess, res)
		if opts.Progress != nil {
			opts.Progress(int(done), len(paths), path)
		}

		if res.Err != nil {
			cerr := session.Classify(res.Err, path)
			if !sess.ShouldContinue(cerr) {
				markUnprocessed(results, paths)
				return results, errors.Errorf("stopping run after %s errors: %w", cerr.Kind, cerr)
			}
		}
	}
	return results, nil
}

// ProcessAuto picks sequential processing for small file sets or
// memory-constrained runs and the concurrent pool otherwise.
func ProcessAuto(ctx context.Context, paths, ruleNames []string, table rules.Table, sess *session.Session, opts Options) ([]Result, error) {
	if len(paths) < autoSequentialThreshold ||
		(opts.MemoryLimitMB > 0 && opts.MemoryLimitMB < autoLowMemoryMB) ||
		opts.Concurrency == 1 {
		return ProcessSequential(ctx, paths, ruleNames, table, sess, opts)
	}
	return Process(ctx, paths, ruleNames, table, sess, opts)
}

func reportResult(sess *session.Session, res Result) int64 {
	if res.Err != nil {
		return sess.MarkFailed()
	}
	return sess.MarkProcessed(res.Changed > 0)
}

// markUnprocessed fills Results the run never reached.
func markUnprocessed(results []Result, paths []string) {
	for i := range results {
		if results[i].Path == "" {
			results[i] = Result{Path: paths[i], Err: errors.WithStack(ErrAborted)}
		}
	}
}

// processOne reads, rewrites, and writes back a single file. Every
// failure is classified and recorded; none of them panic outward.
func processOne(ctx context.Context, path string, ruleNames []string, table rules.Table, sess *session.Session, opts Options) Result {
	log := zerolog.Ctx(ctx).With().Str("path", path).Logger()

	data, err := readFile(opts.FS, path)
	if err != nil {
		cerr := session.Classify(err, path)
		sess.Record(cerr)
		log.Debug().Err(cerr).Msg("read failed")
		return Result{Path: path, Err: cerr}
	}

	if !utf8.Valid(data) {
		cerr := session.New(session.KindEncoding, path, errors.New("content is not valid UTF-8"))
		sess.Record(cerr)
		return Result{Path: path, Err: cerr}
	}

	out, changed, err := rules.Apply(ctx, table, ruleNames, string(data), path)
	if err != nil {
		// Rule failures were already recorded by the rule's sink; the
		// file falls back to its original content with no write.
		log.Debug().Err(err).Msg("rule application failed")
		return Result{Path: path, Err: err}
	}

	if changed > 0 && !opts.DryRun {
		if err := writeFile(opts.FS, path, []byte(out)); err != nil {
			cerr := session.Classify(err, path)
			sess.Record(cerr)
			log.Debug().Err(cerr).Msg("write failed")
			return Result{Path: path, Err: cerr}
		}
		log.Debug().Int("rules_changed", changed).Msg("rewritten")
	}

	return Result{Path: path, Changed: changed}
}

func readFile(afs afero.Fs, path string) ([]byte, error) {
	info, err := afs.Stat(path)
	if err == nil && info.IsDir() {
		return nil, session.New(session.KindIsDirectory, path, errors.New("path is a directory"))
	}
	return afero.ReadFile(afs, path)
}

func writeFile(afs afero.Fs, path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := afs.Stat(path); err == nil {
		mode = info.Mode()
	}
	return afero.WriteFile(afs, path, data, mode)
}
