package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/clinic-intel/internal/escalate"
	"github.com/sells-group/clinic-intel/internal/export"
	"github.com/sells-group/clinic-intel/internal/model"
)

var (
	runURL   string
	runFlags crawlFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract clinic info for a single website",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runFlags.apply(cmd, cfg)

		env, err := initClinic(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		row, err := runSingle(ctx, env.Controller, runURL, env.Budget)
		if err != nil {
			return err
		}

		if err := export.Write(ctx, cfg.Output.Path, []model.ClinicResult{row}, export.Options{
			Compact:  cfg.Output.Compact,
			Provider: env.Oracle.Name(),
		}); err != nil {
			return err
		}
		return printResult(os.Stdout, row)
	},
}

// seedRunner is satisfied by *escalate.Controller.
type seedRunner interface {
	Run(ctx context.Context, seed string, base model.CrawlBudget) (escalate.Result, error)
}

// runSingle processes one seed and returns its output row.
func runSingle(ctx context.Context, r seedRunner, seed string, base model.CrawlBudget) (model.ClinicResult, error) {
	res, err := r.Run(ctx, seed, base)
	if err != nil {
		return model.ClinicResult{}, eris.Wrapf(err, "run %s", seed)
	}

	zap.L().Info("extraction complete",
		zap.String("seed", seed),
		zap.String("site", res.Site),
		zap.String("state", res.State.String()),
		zap.Int("attempts", len(res.Attempts)),
		zap.Strings("unresolved", res.Unresolved()),
	)
	return model.ClinicResult{URL: seed, ClinicInfo: res.Record}, nil
}

func printResult(w io.Writer, row model.ClinicResult) error {
	data, err := export.MarshalResult(row)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return eris.Wrap(err, "print result")
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "clinic website URL (required)")
	_ = runCmd.MarkFlagRequired("url")
	runFlags.register(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
