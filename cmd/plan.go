package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/clinic-intel/internal/config"
	"github.com/sells-group/clinic-intel/internal/escalate"
)

var planFlags crawlFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the crawl budgets a seed would be tried with",
	RunE: func(cmd *cobra.Command, args []string) error {
		planFlags.apply(cmd, cfg)
		if err := cfg.Validate("plan"); err != nil {
			return err
		}
		return writePlan(os.Stdout, cfg)
	},
}

// planStep is one row of the printed plan. MaxDepth is omitted for the
// unbounded exhaustive crawl.
type planStep struct {
	Step     int    `yaml:"step"`
	State    string `yaml:"state"`
	MaxPages int    `yaml:"max_pages"`
	MaxDepth *int   `yaml:"max_depth,omitempty"`
}

func buildPlan(c *config.Config) []planStep {
	opts := escalationOptions(c)
	steps := escalate.NewController(nil, nil, opts).Steps(baseBudget(c))

	out := make([]planStep, 0, len(steps)+1)
	for i, b := range steps {
		state := escalate.StateInitial
		if i > 0 {
			state = escalate.StateEscalating
		}
		depth := b.MaxDepth
		out = append(out, planStep{Step: i + 1, State: state.String(), MaxPages: b.MaxPages, MaxDepth: &depth})
	}
	if opts.Enabled && opts.Exhaustive {
		out = append(out, planStep{
			Step:     len(out) + 1,
			State:    escalate.StateExhaustive.String(),
			MaxPages: opts.ExhaustivePageCap,
		})
	}
	return out
}

func writePlan(w io.Writer, c *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildPlan(c)); err != nil {
		return eris.Wrap(err, "plan: encode")
	}
	return eris.Wrap(enc.Close(), "plan: flush")
}

func init() {
	planFlags.registerBudget(planCmd.Flags())
	planCmd.Flags().BoolVar(&planFlags.exhaustive, "exhaust-all-if-unknown", false, "include the exhaustive crawl step")
	rootCmd.AddCommand(planCmd)
}
