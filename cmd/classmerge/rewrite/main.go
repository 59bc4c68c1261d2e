package rewrite

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/classmerge/pkg/config"
	"github.com/walteh/classmerge/pkg/rules"
	"github.com/walteh/classmerge/pkg/scheduler"
	"github.com/walteh/classmerge/pkg/session"
)

type Handler struct {
	ruleNames   []string
	configFile  string
	jobs        int
	chunkSize   int
	memoryLimit int
	sequential  bool
	dryRun      bool
	quiet       bool
	verbose     bool
	logFormat   string
}

func NewRewriteCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "rewrite [globs...]",
		Short: "apply merge rules to the files matched by the given globs",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().StringSliceVar(&me.ruleNames, "rules", nil, "ordered rule names to apply (default: all rules)")
	cmd.Flags().StringVar(&me.configFile, "config", "", "path to a .classmerge.hcl or .classmerge.yaml config file")
	cmd.Flags().IntVar(&me.jobs, "jobs", 0, "worker concurrency (default: half the logical cores, max 8)")
	cmd.Flags().IntVar(&me.chunkSize, "chunk-size", 0, "files per dispatched chunk (default: computed)")
	cmd.Flags().IntVar(&me.memoryLimit, "memory-limit", 0, "memory ceiling in MB (default: 512, negative disables)")
	cmd.Flags().BoolVar(&me.sequential, "sequential", false, "disable concurrency and process files in input order")
	cmd.Flags().BoolVar(&me.dryRun, "dry-run", false, "apply rules without writing files back")
	cmd.Flags().BoolVar(&me.quiet, "quiet", false, "suppress per-file progress output")
	cmd.Flags().BoolVar(&me.verbose, "verbose", false, "enable debug logging")
	cmd.Flags().StringVar(&me.logFormat, "log-format", "console", "log output format (console or json)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

func (me *Handler) setupLogger(ctx context.Context) context.Context {
	level := zerolog.InfoLevel
	if me.verbose {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if me.logFormat == "json" {
		logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return logger.WithContext(ctx)
}

func (me *Handler) Run(ctx context.Context, globs []string) error {
	ctx = me.setupLogger(ctx)

	cfg, err := me.loadConfig()
	if err != nil {
		return err
	}

	table := rules.NewTable(nil)
	if err := cfg.Validate(table); err != nil {
		return err
	}

	paths, err := resolveGlobs(globs, cfg.Exclude)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		zerolog.Ctx(ctx).Info().Msg("no files matched")
		return nil
	}

	sess := session.NewSession(len(paths))
	table = rules.NewTable(sess)

	opts := scheduler.Options{
		Concurrency:   cfg.Concurrency,
		ChunkSize:     cfg.ChunkSize,
		MemoryLimitMB: cfg.MemoryLimitMB,
		FS:            afero.NewOsFs(),
		DryRun:        me.dryRun,
	}
	if !me.quiet {
		opts.Progress = func(done, total int, path string) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] %s\x1b[K", done, total, path)
		}
	}

	var results []scheduler.Result
	var runErr error
	if me.sequential || cfg.Sequential {
		results, runErr = scheduler.ProcessSequential(ctx, paths, cfg.Rules, table, sess, opts)
	} else {
		results, runErr = scheduler.ProcessAuto(ctx, paths, cfg.Rules, table, sess, opts)
	}
	if !me.quiet {
		fmt.Fprintln(os.Stderr)
	}

	fmt.Print(sess.Report())

	if runErr != nil {
		return errors.Errorf("run aborted: %w", runErr)
	}
	for _, res := range results {
		if !res.Success() {
			return errors.Errorf("%d of %d files failed", sess.Failed(), len(results))
		}
	}
	return nil
}

// loadConfig merges the config file (when present) with command-line
// flags; flags win.
func (me *Handler) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if me.configFile != "" {
		loaded, err := config.Load(me.configFile)
		if err != nil {
			return nil, err
		}
		if len(loaded.Rules) > 0 {
			cfg = loaded
		} else {
			loaded.Rules = cfg.Rules
			cfg = loaded
		}
	}

	if len(me.ruleNames) > 0 {
		cfg.Rules = me.ruleNames
	}
	if me.jobs != 0 {
		cfg.Concurrency = me.jobs
	}
	if me.chunkSize != 0 {
		cfg.ChunkSize = me.chunkSize
	}
	if me.memoryLimit != 0 {
		cfg.MemoryLimitMB = me.memoryLimit
	}
	return cfg, nil
}

// resolveGlobs expands doublestar patterns into a deduplicated,
// deterministically ordered path list.
func resolveGlobs(globs, excludes []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	for _, g := range globs {
		matches, err := doublestar.FilepathGlob(g)
		if err != nil {
			return nil, session.New(session.KindConfig, g, errors.Errorf("invalid glob: %w", err))
		}
		for _, m := range matches {
			if seen[m] || excluded(m, excludes) {
				continue
			}
			seen[m] = true
			paths = append(paths, m)
		}
	}

	sort.Strings(paths)
	return paths, nil
}

func excluded(path string, excludes []string) bool {
	for _, e := range excludes {
		if ok, err := doublestar.PathMatch(e, path); err == nil && ok {
			return true
		}
	}
	return false
}
