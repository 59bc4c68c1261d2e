package scheduler_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/classmerge/pkg/rules"
	"github.com/walteh/classmerge/pkg/scheduler"
	"github.com/walteh/classmerge/pkg/session"
)

var allRules = []string{"size-merge", "axis-merge", "gap-merge", "color-opacity-merge"}

// seedFiles writes count files with class attributes that every rule can
// bite on, returning their paths in input order.
func seedFiles(t *testing.T, fs afero.Fs, count int) []string {
	t.Helper()
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		path := fmt.Sprintf("src/file%03d.html", i)
		content := fmt.Sprintf(
			`<div class="flex w-%d h-%d space-x-2 space-y-2"><span class="bg-red-500 bg-opacity-50"></span></div>`, i, i)
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func readAll(t *testing.T, fs afero.Fs, paths []string) map[string]string {
	t.Helper()
	out := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(fs, p)
		require.NoError(t, err)
		out[p] = string(data)
	}
	return out
}

func TestConcurrentMatchesSequential(t *testing.T) {
	ctx := context.Background()

	seqFS := afero.NewMemMapFs()
	seqPaths := seedFiles(t, seqFS, 50)
	seqSess := session.NewSession(len(seqPaths))
	seqResults, err := scheduler.ProcessSequential(ctx, seqPaths, allRules, rules.NewTable(seqSess), seqSess, scheduler.Options{FS: seqFS})
	require.NoError(t, err)

	conFS := afero.NewMemMapFs()
	conPaths := seedFiles(t, conFS, 50)
	conSess := session.NewSession(len(conPaths))
	conResults, err := scheduler.Process(ctx, conPaths, allRules, rules.NewTable(conSess), conSess, scheduler.Options{
		FS:          conFS,
		Concurrency: 4,
		ChunkSize:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, readAll(t, seqFS, seqPaths), readAll(t, conFS, conPaths),
		"concurrent and sequential runs must produce identical file content")

	assert.EqualValues(t, 50, seqSess.Processed())
	assert.EqualValues(t, 50, conSess.Processed())

	require.Len(t, conResults, len(seqResults))
	for i := range seqResults {
		assert.Equal(t, seqResults[i].Path, conResults[i].Path, "result order follows input order")
		assert.Equal(t, seqResults[i].Changed, conResults[i].Changed)
	}
}

func TestFailureIsolation(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	paths := seedFiles(t, fs, 4)

	// Splice one nonexistent path into the middle of the run.
	paths = append(paths[:2], append([]string{"src/missing.html"}, paths[2:]...)...)

	sess := session.NewSession(len(paths))
	results, err := scheduler.Process(ctx, paths, allRules, rules.NewTable(sess), sess, scheduler.Options{
		FS:          fs,
		Concurrency: 2,
	})
	require.NoError(t, err, "one recoverable failure must not abort the run")
	require.Len(t, results, 5)

	var failed []scheduler.Result
	for _, res := range results {
		if !res.Success() {
			failed = append(failed, res)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "src/missing.html", failed[0].Path)

	cerr := session.Classify(failed[0].Err, failed[0].Path)
	assert.Equal(t, session.KindNotFound, cerr.Kind)
	assert.EqualValues(t, 1, sess.Failed())
	assert.EqualValues(t, 5, sess.Processed())
}

func TestDirectoryPathFails(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("src/nested", 0o755))
	paths := seedFiles(t, fs, 1)
	paths = append(paths, "src/nested")

	sess := session.NewSession(len(paths))
	results, err := scheduler.ProcessSequential(ctx, paths, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs})
	require.NoError(t, err)

	assert.True(t, results[0].Success())
	require.False(t, results[1].Success())
	assert.Equal(t, session.KindIsDirectory, session.Classify(results[1].Err, "").Kind)
}

func TestEncodingFailure(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.html", []byte{0xff, 0xfe, 'x'}, 0o644))

	sess := session.NewSession(1)
	results, err := scheduler.ProcessSequential(ctx, []string{"bad.html"}, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs})
	require.NoError(t, err)
	require.False(t, results[0].Success())
	assert.Equal(t, session.KindEncoding, session.Classify(results[0].Err, "").Kind)
}

func TestUnchangedFilesAreNotRewritten(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	content := `<p>nothing to merge</p>`
	require.NoError(t, afero.WriteFile(fs, "plain.html", []byte(content), 0o644))

	before, err := fs.Stat("plain.html")
	require.NoError(t, err)

	sess := session.NewSession(1)
	results, err := scheduler.ProcessSequential(ctx, []string{"plain.html"}, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs})
	require.NoError(t, err)
	assert.True(t, results[0].Success())
	assert.Zero(t, results[0].Changed)

	after, err := fs.Stat("plain.html")
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "unchanged files must not be written back")
}

func TestDryRun(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	content := `<div class="w-4 h-4">`
	require.NoError(t, afero.WriteFile(fs, "a.html", []byte(content), 0o644))

	sess := session.NewSession(1)
	results, err := scheduler.ProcessSequential(ctx, []string{"a.html"}, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Changed, "dry run still reports the change")

	data, err := afero.ReadFile(fs, "a.html")
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "dry run must not touch the file")
}

func TestProgressCallback(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	paths := seedFiles(t, fs, 12)

	var mu sync.Mutex
	var dones []int
	sess := session.NewSession(len(paths))
	_, err := scheduler.Process(ctx, paths, allRules, rules.NewTable(sess), sess, scheduler.Options{
		FS:          fs,
		Concurrency: 3,
		ChunkSize:   2,
		Progress: func(done, total int, path string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 12, total)
			assert.NotEmpty(t, path)
			dones = append(dones, done)
		},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dones, 12, "progress fires once per completed file")
	seen := make(map[int]bool)
	for _, d := range dones {
		assert.False(t, seen[d], "completed counts are unique")
		seen[d] = true
	}
	assert.True(t, seen[12], "the final callback reports full completion")
}

func TestFatalConfigAbortsRun(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	paths := seedFiles(t, fs, 30)

	sess := session.NewSession(len(paths))
	results, err := scheduler.ProcessSequential(ctx, paths, []string{"no-such-rule"}, rules.NewTable(sess), sess, scheduler.Options{FS: fs})
	require.Error(t, err, "an unknown rule is a non-recoverable configuration error")

	var aborted int
	for _, res := range results {
		if res.Err != nil {
			aborted++
		}
	}
	assert.Equal(t, len(paths), aborted, "remaining files are marked, not silently dropped")
}

func TestProcessAuto(t *testing.T) {
	t.Run("small_file_sets_run_sequentially", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		paths := seedFiles(t, fs, 3)
		sess := session.NewSession(len(paths))
		results, err := scheduler.ProcessAuto(context.Background(), paths, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs})
		require.NoError(t, err)
		assert.Len(t, results, 3)
		assert.EqualValues(t, 3, sess.Processed())
	})

	t.Run("large_file_sets_use_the_pool", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		paths := seedFiles(t, fs, 25)
		sess := session.NewSession(len(paths))
		results, err := scheduler.ProcessAuto(context.Background(), paths, allRules, rules.NewTable(sess), sess, scheduler.Options{FS: fs, Concurrency: 4})
		require.NoError(t, err)
		assert.Len(t, results, 25)
		assert.EqualValues(t, 25, sess.Processed())
	})
}
