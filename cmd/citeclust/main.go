package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"citeclust/internal/analysis"
	"citeclust/internal/config"
	"citeclust/internal/graph"
	"citeclust/internal/oracle"
	"citeclust/internal/pipeline"
	"citeclust/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootCmd = &cobra.Command{
		Use:   "citeclust",
		Short: "Cluster a citation graph and consolidate undersized clusters",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if dbPath == "" {
				dbPath = cfg.Storage.Path
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	dbPath     string
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite database (default from config)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	clusterCmd.Flags().StringVarP(&mode, "mode", "m", "", `Preset to use: "field" or "topic" (default from config)`)
	clusterCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count for the merge step (default from config)")
	consolidateCmd.Flags().StringVar(&runID, "run", "", "Run ID to recompute")
	consolidateCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker count (default: the run's)")
	_ = consolidateCmd.MarkFlagRequired("run")
	exportCmd.Flags().StringVar(&runID, "run", "", "Run ID to export (default: latest)")
	exportCmd.Flags().StringVar(&stage, "stage", string(storage.StageFinal), `Partition stage: "raw" or "final"`)
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output CSV path (default: stdout)")
	summaryCmd.Flags().StringVar(&runID, "run", "", "Run ID to summarize (default: latest)")
	summaryCmd.Flags().IntVar(&top, "top", 20, "Number of clusters to list (0 for all)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(summaryCmd)
}

var (
	mode    string
	workers int
	runID   string
	stage   string
	outPath string
	top     int
)

// initStore opens the configured SQLite store.
func initStore() (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(dbPath)
}

var importCmd = &cobra.Command{
	Use:   "import <edges.csv>",
	Short: "Load a source,target citation edge list as the current snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		g, err := graph.ReadEdgeList(f)
		if err != nil {
			return err
		}

		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		if err := store.SaveGraph(cmd.Context(), g); err != nil {
			return fmt.Errorf("failed to save graph: %w", err)
		}

		stats := g.Stats()
		logger.Info("Imported citations",
			zap.String("file", args[0]),
			zap.Int("nodes", stats.Nodes),
			zap.Int("edges", stats.Edges),
			zap.Int("self_loops", stats.SelfLoops))
		return nil
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Partition the citation snapshot and merge undersized clusters",
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := cfg.Params(mode)
		if err != nil {
			return err
		}
		if workers > 0 {
			params.WorkerCount = workers
		}

		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		start := time.Now()
		runner := pipeline.NewRunner(store, oracle.NewCPM(logger), logger)
		run, report, err := runner.Cluster(cmd.Context(), params)
		if err != nil {
			return err
		}

		printReport(cmd, run, report, time.Since(start))
		return nil
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Recompute the final partition of a run from its stored raw partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		start := time.Now()
		runner := pipeline.NewRunner(store, oracle.NewCPM(logger), logger)
		run, report, err := runner.Reconsolidate(cmd.Context(), runID, workers)
		if err != nil {
			return err
		}

		printReport(cmd, run, report, time.Since(start))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a stored partition as node,cluster CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		id, err := resolveRunID(ctx, store, runID)
		if err != nil {
			return err
		}

		p, err := store.LoadPartition(ctx, id, storage.Stage(stage))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return p.WriteCSV(out)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded clustering runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tRESOLUTION\tNMIN\tWORKERS\tK\tUNASSIGNED\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%d\t%d\t%d\t%s\n",
				r.ID, r.Mode, r.Resolution, r.NMin, r.Workers, r.Clusters, r.Unassigned, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show how the final clusters of a run were assembled",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := initStore()
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		id, err := resolveRunID(ctx, store, runID)
		if err != nil {
			return err
		}
		raw, err := store.LoadPartition(ctx, id, storage.StageRaw)
		if err != nil {
			return err
		}
		final, err := store.LoadPartition(ctx, id, storage.StageFinal)
		if err != nil {
			return err
		}
		merges, err := store.LoadMerges(ctx, id)
		if err != nil {
			return err
		}

		comp := analysis.NewAnalyzer(raw, final, merges).Compose()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CLUSTER\tORIGIN\tSIZE\tABSORBED\tGAINED")
		for i, c := range comp.Clusters {
			if top > 0 && i >= top {
				break
			}
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", c.Final, c.Origin, c.Size, len(c.Absorbed), c.Gained)
		}
		fmt.Fprintf(w, "unassigned nodes: %d, dropped clusters: %d\n", comp.Unassigned, len(comp.Dropped))
		return w.Flush()
	},
}

func resolveRunID(ctx context.Context, store storage.Store, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded yet")
	}
	return runs[0].ID, nil
}

func printReport(cmd *cobra.Command, run *storage.Run, report *pipeline.Report, elapsed time.Duration) {
	s := report.Stats
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (mode=%s resolution=%g nmin=%d)\n", run.ID, run.Mode, run.Resolution, run.NMin)
	fmt.Fprintf(out, "  raw clusters:      %d\n", s.Clusters)
	fmt.Fprintf(out, "  small (<%d):       %d\n", run.NMin, s.Small)
	fmt.Fprintf(out, "  merged:            %d\n", s.Merged)
	fmt.Fprintf(out, "  not merged:        %d\n", s.Unmergeable)
	fmt.Fprintf(out, "  unassigned nodes:  %d/%d\n", s.Unassigned, len(report.Final()))
	fmt.Fprintf(out, "  final clusters:    %d\n", s.K)
	fmt.Fprintf(out, "  elapsed:           %v\n", elapsed.Round(time.Millisecond))
}
