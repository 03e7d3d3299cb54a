package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/clinic-intel/internal/escalate"
	"github.com/sells-group/clinic-intel/internal/export"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/scrape"
	"github.com/sells-group/clinic-intel/internal/seeds"
	"github.com/sells-group/clinic-intel/internal/store"
)

var (
	batchInput       string
	batchConcurrency int
	batchStorePath   string
	batchFlags       crawlFlags
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract clinic info for every url in a CSV or XLSX seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		batchFlags.apply(cmd, cfg)
		if cmd.Flags().Changed("concurrency") {
			cfg.Batch.MaxConcurrentSeeds = batchConcurrency
		}
		if cmd.Flags().Changed("store") {
			cfg.Batch.StorePath = batchStorePath
		}

		list, err := seeds.Read(ctx, batchInput)
		if err != nil {
			return err
		}

		env, err := initClinic(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		var sink outcomeSink
		if cfg.Batch.StorePath != "" {
			ss, err := openStoreSink(ctx, cfg.Batch.StorePath, env.Oracle.Name(), len(list))
			if err != nil {
				return err
			}
			defer ss.Close()
			sink = ss
		}

		start := time.Now()
		rows, summary := processBatch(ctx, list, cfg.Batch.MaxConcurrentSeeds, env.Controller, env.Budget, sink)
		if ss, ok := sink.(*storeSink); ok {
			ss.finish(summary.Interrupted)
		}

		zap.L().Info("batch complete",
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("results", len(rows)),
			zap.Int64("succeeded", summary.Succeeded),
			zap.Int64("failed", summary.Failed),
			zap.Bool("interrupted", summary.Interrupted),
		)

		// Collected rows are written even after an interrupt.
		if err := export.Write(context.WithoutCancel(ctx), cfg.Output.Path, rows, export.Options{
			Compact:  cfg.Output.Compact,
			Provider: env.Oracle.Name(),
		}); err != nil {
			return err
		}
		if len(rows) == 1 {
			return printResult(os.Stdout, rows[0])
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "seed file with a 'url' column (.csv or .xlsx, required)")
	batchCmd.Flags().StringVar(&batchInput, "input-csv", "", "alias for --input")
	batchCmd.MarkFlagsOneRequired("input", "input-csv")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 1, "seeds processed at once")
	batchCmd.Flags().StringVar(&batchStorePath, "store", "", "SQLite file that logs every seed outcome, failures included")
	batchFlags.register(batchCmd.Flags())
	rootCmd.AddCommand(batchCmd)
}

// batchSummary counts seed outcomes.
type batchSummary struct {
	Succeeded   int64
	Failed      int64
	Interrupted bool
}

// outcomeSink receives each seed's outcome as it completes. Implementations
// must be safe for concurrent use.
type outcomeSink interface {
	Record(ctx context.Context, seed seeds.Seed, res escalate.Result, err error)
}

// processBatch runs every seed through r with at most concurrency seeds in
// flight. Failed seeds are logged and omitted. Rows keep input order. After
// ctx is cancelled no new seed starts and the rows collected so far are
// returned.
func processBatch(ctx context.Context, list []seeds.Seed, concurrency int, r seedRunner, base model.CrawlBudget, sink outcomeSink) ([]model.ClinicResult, batchSummary) {
	if len(list) == 0 {
		zap.L().Info("no seeds found")
		return nil, batchSummary{}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("seeds", len(list)),
		zap.Int("concurrency", concurrency),
	)

	slots := make([]*model.ClinicResult, len(list))
	var succeeded, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, s := range list {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			log := zap.L().With(zap.String("seed", s.URL), zap.String("site", scrape.SiteKey(s.URL)), zap.Int("line", s.Line))
			log.Info("processing seed")

			res, err := r.Run(ctx, s.URL, base)
			if sink != nil {
				sink.Record(ctx, s, res, err)
			}
			if err != nil {
				if ctx.Err() != nil {
					log.Warn("seed interrupted", zap.Error(err))
					return nil
				}
				failed.Add(1)
				log.Error("seed failed", zap.Error(err))
				return nil // one seed never aborts the batch
			}

			succeeded.Add(1)
			log.Info("seed complete",
				zap.String("state", res.State.String()),
				zap.Int("attempts", len(res.Attempts)),
				zap.Strings("unresolved", res.Unresolved()),
			)
			slots[i] = &model.ClinicResult{URL: s.URL, ClinicInfo: res.Record}
			return nil
		})
	}
	_ = g.Wait()

	summary := batchSummary{
		Succeeded:   succeeded.Load(),
		Failed:      failed.Load(),
		Interrupted: ctx.Err() != nil,
	}
	if summary.Interrupted {
		zap.L().Warn("batch interrupted, writing collected results")
	}

	rows := make([]model.ClinicResult, 0, summary.Succeeded)
	for _, row := range slots {
		if row != nil {
			rows = append(rows, *row)
		}
	}
	return rows, summary
}

// storeSink appends outcomes to a SQLite run log.
type storeSink struct {
	st  store.Store
	run *store.Run
}

func openStoreSink(ctx context.Context, path, provider string, seedCount int) (*storeSink, error) {
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	run, err := st.CreateRun(ctx, provider, seedCount)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	zap.L().Info("recording outcomes", zap.String("store", path), zap.String("run_id", run.ID))
	return &storeSink{st: st, run: run}, nil
}

// Record implements outcomeSink. Store errors are logged, not returned.
func (s *storeSink) Record(ctx context.Context, seed seeds.Seed, res escalate.Result, runErr error) {
	o := store.Outcome{
		RunID:    s.run.ID,
		URL:      seed.URL,
		Status:   store.OutcomeOK,
		Record:   res.Record,
		Attempts: len(res.Attempts),
	}
	if runErr != nil {
		o.Status = store.OutcomeFailed
		o.Error = runErr.Error()
	}
	if _, err := s.st.SaveOutcome(context.WithoutCancel(ctx), o); err != nil {
		zap.L().Warn("store: save outcome", zap.String("seed", seed.URL), zap.Error(err))
	}
}

func (s *storeSink) finish(interrupted bool) {
	status := store.RunStatusComplete
	if interrupted {
		status = store.RunStatusInterrupted
	}
	if err := s.st.FinishRun(context.Background(), s.run.ID, status); err != nil {
		zap.L().Warn("store: finish run", zap.String("run_id", s.run.ID), zap.Error(err))
	}
}

// Close closes the underlying store.
func (s *storeSink) Close() {
	if err := s.st.Close(); err != nil {
		zap.L().Warn("store: close", zap.Error(err))
	}
}
