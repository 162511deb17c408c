package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/marco-c/pdf-finder/internal/archive"
	"github.com/marco-c/pdf-finder/internal/cache"
	"github.com/marco-c/pdf-finder/internal/config"
	"github.com/marco-c/pdf-finder/internal/discover"
	"github.com/marco-c/pdf-finder/internal/qpdf"
	"github.com/marco-c/pdf-finder/internal/report"
	"github.com/marco-c/pdf-finder/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [roots...]",
	Short: "Scan corpus directories and report feature statistics",
	Long: `Walk the given corpus roots (or the roots from the config file),
classify every PDF, print the aggregate report, and write the xfa/js/tagged
export archives.

A per-document qpdf failure is logged and skipped; any other error aborts
the whole run without producing a report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()

		// The default config path is optional; one given explicitly must
		// exist.
		if err := config.LoadFile(&cfg, cfgFile, !cmd.Flags().Changed("config")); err != nil {
			return err
		}
		if err := config.ApplyEnv(&cfg); err != nil {
			return err
		}
		applyScanFlags(cmd, &cfg)
		if len(args) > 0 {
			cfg.Roots = args
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		timeout, err := cfg.TimeoutDuration()
		if err != nil {
			return err
		}

		// Stop cleanly on Ctrl+C: the context cancels the pipeline and
		// Run returns without a report.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		paths, err := discover.Find(cfg.Roots)
		if err != nil {
			return err
		}

		workers := cfg.Concurrency
		if workers <= 0 {
			workers = scan.DefaultWorkers()
		}
		maxProcs := cfg.MaxProcs
		if maxProcs <= 0 {
			maxProcs = workers
		}

		runID := uuid.New().String()[:8]
		fmt.Fprintf(os.Stderr, "scan %s: %d PDFs, %d workers\n", runID, len(paths), workers)

		gateway := qpdf.New(qpdf.Config{
			Path:        cfg.QPDFPath,
			MemoryLimit: uint64(cfg.MemoryLimitMB) * 1024 * 1024,
			Timeout:     timeout,
			MaxProcs:    maxProcs,
		})

		quiet, _ := cmd.Flags().GetBool("quiet")
		agg, err := scan.Run(ctx, scan.Config{
			Workers:  workers,
			Gateway:  gateway,
			Cache:    &cache.Store{},
			Progress: !quiet,
		}, paths)
		if err != nil {
			return err
		}

		rep := agg.Finalize(cfg.TopN, cfg.TaggedTail)
		report.Print(os.Stdout, rep)

		if cfg.SkipArchives {
			return nil
		}
		fmt.Println()
		writer := &archive.Writer{OutputDir: cfg.OutputDir}
		for _, category := range []string{"xfa", "js", "tagged"} {
			docs := rep.Exports[category]
			size, err := writer.WriteCategory(category, docs)
			if err != nil {
				return err
			}
			report.PrintArchive(os.Stdout, category, len(docs), size)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().Int("concurrency", 0, "documents in flight at once (0 = min(32, NumCPU+4))")
	scanCmd.Flags().String("qpdf", "", "qpdf executable")
	scanCmd.Flags().String("qpdf-timeout", "", "per-document qpdf timeout, e.g. 90s (empty = none)")
	scanCmd.Flags().Int("memory-limit-mb", 0, "virtual memory cap per qpdf process")
	scanCmd.Flags().Int("max-procs", 0, "max concurrent qpdf processes (0 = concurrency)")
	scanCmd.Flags().Int("top", 0, "rows per frequency ranking")
	scanCmd.Flags().Int("tagged-tail", 0, "tagged documents sampled into tagged.tar.gz")
	scanCmd.Flags().String("output-dir", "", "directory for export archives")
	scanCmd.Flags().Bool("skip-archives", false, "do not write export archives")
	scanCmd.Flags().Bool("quiet", false, "disable the progress line")
	rootCmd.AddCommand(scanCmd)
}

// applyScanFlags overlays explicitly set flags onto cfg. Flags win over
// both the config file and the environment.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("qpdf") {
		cfg.QPDFPath, _ = cmd.Flags().GetString("qpdf")
	}
	if cmd.Flags().Changed("qpdf-timeout") {
		cfg.QPDFTimeout, _ = cmd.Flags().GetString("qpdf-timeout")
	}
	if cmd.Flags().Changed("memory-limit-mb") {
		cfg.MemoryLimitMB, _ = cmd.Flags().GetInt("memory-limit-mb")
	}
	if cmd.Flags().Changed("max-procs") {
		cfg.MaxProcs, _ = cmd.Flags().GetInt("max-procs")
	}
	if cmd.Flags().Changed("top") {
		cfg.TopN, _ = cmd.Flags().GetInt("top")
	}
	if cmd.Flags().Changed("tagged-tail") {
		cfg.TaggedTail, _ = cmd.Flags().GetInt("tagged-tail")
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("skip-archives") {
		cfg.SkipArchives, _ = cmd.Flags().GetBool("skip-archives")
	}
}
