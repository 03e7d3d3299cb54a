package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/clinic-intel/internal/config"
	"github.com/sells-group/clinic-intel/internal/oracle"
)

// crawlFlags are shared by run, batch and plan. A flag overrides its config
// value only when set on the command line.
type crawlFlags struct {
	provider      string
	model         string
	maxPages      int
	maxDepth      int
	maxTotalPages int
	maxTotalDepth int
	noExhaust     bool
	exhaustive    bool
	noNormalize   bool
	out           string
	compact       bool
}

func (f *crawlFlags) registerBudget(fs *pflag.FlagSet) {
	fs.IntVar(&f.maxPages, "max-pages", 20, "max pages per site in the first crawl")
	fs.IntVar(&f.maxDepth, "max-depth", 2, "link depth from the seed page in the first crawl")
	fs.IntVar(&f.maxTotalPages, "max-total-pages", 120, "upper bound of pages when resolving unknown fields")
	fs.IntVar(&f.maxTotalDepth, "max-total-depth", 3, "upper bound of depth when resolving unknown fields")
	fs.BoolVar(&f.noExhaust, "no-exhaust", false, "disable crawl widening to resolve unknown fields")
}

func (f *crawlFlags) register(fs *pflag.FlagSet) {
	f.registerBudget(fs)
	fs.StringVar(&f.provider, "provider", "gemini", "oracle provider: "+strings.Join(oracle.Providers, ", "))
	fs.StringVar(&f.model, "model", "", "model name for the selected provider")
	fs.BoolVar(&f.exhaustive, "exhaust-all-if-unknown", false, "crawl every same-site page (capped) when fields remain unknown")
	fs.BoolVar(&f.noNormalize, "no-normalize", false, "keep oracle location and clinic_size values as returned")
	fs.StringVarP(&f.out, "out", "o", "results.jsonl", "output path (.jsonl, .json, .csv, .xlsx, .yaml, .db)")
	fs.BoolVar(&f.compact, "compact", false, "write one JSON object per line for .jsonl output")
}

// apply copies the flags the user set onto c.
func (f *crawlFlags) apply(cmd *cobra.Command, c *config.Config) {
	fs := cmd.Flags()
	set := func(name string) bool {
		fl := fs.Lookup(name)
		return fl != nil && fl.Changed
	}

	if set("max-pages") {
		c.Crawl.MaxPages = f.maxPages
	}
	if set("max-depth") {
		c.Crawl.MaxDepth = f.maxDepth
	}
	if set("max-total-pages") {
		c.Escalation.MaxTotalPages = f.maxTotalPages
	}
	if set("max-total-depth") {
		c.Escalation.MaxTotalDepth = f.maxTotalDepth
	}
	if set("no-exhaust") && f.noExhaust {
		c.Escalation.Enabled = false
	}
	if set("exhaust-all-if-unknown") {
		c.Escalation.Exhaustive = f.exhaustive
	}
	if set("no-normalize") && f.noNormalize {
		c.Oracle.Normalize = false
	}
	if set("provider") {
		c.Oracle.Provider = f.provider
	}
	if set("model") {
		switch strings.ToLower(strings.TrimSpace(c.Oracle.Provider)) {
		case oracle.ProviderAnthropic:
			c.Anthropic.Model = f.model
		case oracle.ProviderGemini:
			c.Gemini.Model = f.model
		}
	}
	if set("out") {
		c.Output.Path = f.out
	}
	if set("compact") {
		c.Output.Compact = f.compact
	}
}

// underscoreFlags accepts --max_pages style spellings for every flag.
func underscoreFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(underscoreFlags)
}
