// Package cmd wires the catp command line onto the discovery, collection
// and rendering pipeline.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/catp/internal/clipboard"
	"github.com/harrison/catp/internal/collect"
	"github.com/harrison/catp/internal/config"
	"github.com/harrison/catp/internal/discover"
	"github.com/harrison/catp/internal/filelock"
	"github.com/harrison/catp/internal/gitls"
	"github.com/harrison/catp/internal/logger"
	"github.com/harrison/catp/internal/render"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// newLister is swapped out by tests to avoid requiring a git binary.
var newLister = func() gitls.Lister { return gitls.NewGitLister() }

type options struct {
	zoom             string
	out              string
	maxKB            int64
	only             []string
	exclude          []string
	allow            []string
	stripNotebooks   bool
	quiet            bool
	verbose          bool
	clipboard        bool
	clipboardTimeout time.Duration
	depth            int
}

// NewRootCommand creates and returns the root cobra command for catp.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "catp [paths...]",
		Short: "Snapshot git repositories into a single text artifact",
		Long: `catp discovers git repositories beneath the current directory, selects
their tracked files with layered include/exclude glob rules, and renders
the selection at one of three zoom levels (repository tree, file listing,
or full contents) into a single artifact.

Positional paths restrict the snapshot to files under those subtrees.`,
		Version: Version,
		Args:    cobra.ArbitraryArgs,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.zoom, "zoom", "z", string(config.ZoomContents),
		"resolution level: repos (tree), files (list), contents (full snapshot)")
	f.StringVarP(&opts.out, "out", "o", "",
		"output file path (default: <tempdir>/<project>-{repos,files,llm}.txt)")
	f.Int64VarP(&opts.maxKB, "max-kb", "k", config.DefaultMaxKB,
		"maximum file size in kilobytes")
	f.StringArrayVar(&opts.only, "only", nil,
		"glob pattern to include (OR logic, repeatable; replaces the default include set)")
	f.StringArrayVarP(&opts.exclude, "exclude", "e", nil,
		"glob pattern to exclude (OR logic, repeatable; adds to the default blocklist)")
	f.StringArrayVarP(&opts.allow, "allow", "a", nil,
		"disable a default exclusion pattern (repeatable)")
	f.BoolVar(&opts.stripNotebooks, "strip-ipynb", true,
		"strip notebook outputs and execution counts (--strip-ipynb=false keeps them)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false,
		"suppress informational output and echoing")
	f.BoolVarP(&opts.verbose, "verbose", "v", false,
		"log per-path filtering decisions")
	f.BoolVarP(&opts.clipboard, "clipboard", "c", false,
		"copy the snapshot to the system clipboard")
	f.DurationVar(&opts.clipboardTimeout, "clipboard-timeout", config.DefaultClipboardTimeout,
		"timeout for clipboard copy operations")
	f.IntVarP(&opts.depth, "depth", "d", config.DefaultDepth,
		"scan for git repositories up to N levels deep (-1 for unlimited)")

	return cmd
}

func run(cmd *cobra.Command, scopedPaths []string, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}
	scanRoot, err := filepath.EvalSymlinks(wd)
	if err != nil {
		scanRoot = wd
	}

	log := logger.NewFromVerbosity(cmd.ErrOrStderr(), opts.quiet, opts.verbose)
	log.Debugf("run %s", uuid.NewString())

	if err := applyFileConfig(cmd, scanRoot, opts); err != nil {
		return err
	}

	zoom, err := config.ParseZoom(opts.zoom)
	if err != nil {
		return err
	}

	outPath := opts.out
	if outPath == "" {
		outPath = zoom.DefaultOutputPath(filepath.Base(scanRoot))
	}

	log.Infof("searching for git repositories (max depth: %d)", opts.depth)
	repos, err := discover.Repos(ctx, scanRoot, discover.Options{
		MaxDepth: opts.depth,
		Only:     opts.only,
		Exclude:  opts.exclude,
		Log:      log,
	})
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		return fmt.Errorf("no git repositories found within depth %d of %s", opts.depth, scanRoot)
	}
	log.Infof("identified %d git repository root(s) to scan", len(repos))

	in := render.Input{
		ScanRoot:       scanRoot,
		Repos:          repos,
		MaxKB:          opts.maxKB,
		Depth:          opts.depth,
		StripNotebooks: opts.stripNotebooks,
	}

	if zoom != config.ZoomRepos {
		log.Infof("collecting files (max size: %d KB)", opts.maxKB)
		result, err := collect.Files(ctx, repos, collect.Options{
			ScanRoot:    scanRoot,
			MaxKB:       opts.maxKB,
			ScopedPaths: scopedPaths,
			Only:        opts.only,
			Exclude:     opts.exclude,
			Allow:       opts.allow,
			Lister:      newLister(),
			Log:         log,
		})
		if err != nil {
			return err
		}
		if len(result.Kept) == 0 {
			return fmt.Errorf("no files matched the inclusion criteria or size limits")
		}
		in.Files = result.Kept
		in.Skipped = result.Skipped
	}

	var echo *render.Echo
	if !opts.quiet {
		echo = render.NewEcho(cmd.ErrOrStderr())
	}

	log.Infof("writing snapshot to %s", outPath)
	var buf bytes.Buffer
	if err := render.ForZoom(zoom).Render(&buf, in, echo); err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}
	if err := filelock.LockAndWrite(outPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write output artifact %s: %w", outPath, err)
	}

	if opts.clipboard {
		copyCtx, cancel := context.WithTimeout(ctx, opts.clipboardTimeout)
		defer cancel()
		if err := clipboard.New().Copy(copyCtx, buf.String()); err != nil {
			log.Errorf("clipboard operation failed; the snapshot file is at %s", outPath)
			return fmt.Errorf("clipboard copy failed: %w", err)
		}
		log.Infof("snapshot copied to clipboard")
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	log.Infof("snapshot complete: %s", outPath)
	return nil
}

// applyFileConfig overlays the optional .catp.yaml onto flag defaults.
// Flags the user set explicitly always win; file pattern lists compose
// with flag patterns the same way repeated flags compose with each other.
func applyFileConfig(cmd *cobra.Command, scanRoot string, opts *options) error {
	fileCfg, err := config.LoadFile(scanRoot)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if fileCfg.Zoom != "" && !flags.Changed("zoom") {
		opts.zoom = fileCfg.Zoom
	}
	if fileCfg.MaxKB > 0 && !flags.Changed("max-kb") {
		opts.maxKB = fileCfg.MaxKB
	}
	if fileCfg.Depth != nil && !flags.Changed("depth") {
		opts.depth = *fileCfg.Depth
	}
	opts.exclude = append(fileCfg.Exclude, opts.exclude...)
	opts.allow = append(fileCfg.Allow, opts.allow...)
	if len(opts.only) == 0 {
		opts.only = fileCfg.Only
	}
	return nil
}
