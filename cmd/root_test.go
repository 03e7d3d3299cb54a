//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "batch", "plan"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "clinic-intel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	require.NotNil(t, runCmd.Flags().Lookup("url"), "run command should have --url flag")

	out := runCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "results.jsonl", out.DefValue)

	provider := runCmd.Flags().Lookup("provider")
	require.NotNil(t, provider)
	assert.Equal(t, "gemini", provider.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "input-csv", "concurrency", "store", "compact", "exhaust-all-if-unknown"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch command should have --%s flag", name)
	}
	assert.Equal(t, "1", batchCmd.Flags().Lookup("concurrency").DefValue)
}

func TestFlags_UnderscoreSpelling(t *testing.T) {
	for _, name := range []string{"max_pages", "max_total_depth", "no_exhaust", "exhaust_all_if_unknown", "input_csv"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch command should accept --%s", name)
	}
}

func TestPlanCommand_Flags(t *testing.T) {
	assert.NotNil(t, planCmd.Flags().Lookup("max-pages"))
	assert.NotNil(t, planCmd.Flags().Lookup("exhaust-all-if-unknown"))
	assert.Nil(t, planCmd.Flags().Lookup("provider"))
}
