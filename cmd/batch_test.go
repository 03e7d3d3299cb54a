//go:build !integration

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/clinic-intel/internal/escalate"
	"github.com/sells-group/clinic-intel/internal/model"
	"github.com/sells-group/clinic-intel/internal/seeds"
	"github.com/sells-group/clinic-intel/internal/store"
)

// fakeRunner returns a record naming the seed, or the configured error.
type fakeRunner struct {
	fail    map[string]error
	onRun   func(seed string)
	calls   atomic.Int32
	maxLive atomic.Int32
	live    atomic.Int32
}

func (f *fakeRunner) Run(_ context.Context, seed string, base model.CrawlBudget) (escalate.Result, error) {
	f.calls.Add(1)
	n := f.live.Add(1)
	defer f.live.Add(-1)
	for {
		m := f.maxLive.Load()
		if n <= m || f.maxLive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.onRun != nil {
		f.onRun(seed)
	}
	if err := f.fail[seed]; err != nil {
		return escalate.Result{}, err
	}
	rec := model.UnknownRecord()
	rec.Specialty = "spec:" + seed
	return escalate.Result{
		Seed:     seed,
		State:    escalate.StateDone,
		Record:   rec,
		Attempts: []escalate.Attempt{{Budget: base}},
	}, nil
}

type recordingSink struct {
	mu   sync.Mutex
	seen map[string]error
}

func (s *recordingSink) Record(_ context.Context, seed seeds.Seed, _ escalate.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]error)
	}
	s.seen[seed.URL] = err
}

func makeSeeds(n int) []seeds.Seed {
	out := make([]seeds.Seed, n)
	for i := range out {
		out[i] = seeds.Seed{Line: i + 2, URL: fmt.Sprintf("https://clinic%d.example/", i)}
	}
	return out
}

var testBudget = model.CrawlBudget{MaxPages: 20, MaxDepth: 2}

func TestProcessBatch_KeepsInputOrder(t *testing.T) {
	list := makeSeeds(12)
	r := &fakeRunner{}

	rows, summary := processBatch(context.Background(), list, 4, r, testBudget, nil)

	require.Len(t, rows, 12)
	for i, row := range rows {
		assert.Equal(t, list[i].URL, row.URL)
		assert.Equal(t, "spec:"+list[i].URL, row.ClinicInfo.Specialty)
	}
	assert.Equal(t, int64(12), summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.False(t, summary.Interrupted)
	assert.LessOrEqual(t, r.maxLive.Load(), int32(4))
}

func TestProcessBatch_FailedSeedsOmitted(t *testing.T) {
	list := makeSeeds(3)
	r := &fakeRunner{fail: map[string]error{list[1].URL: errors.New("crawl: no pages fetched")}}
	sink := &recordingSink{}

	rows, summary := processBatch(context.Background(), list, 2, r, testBudget, sink)

	require.Len(t, rows, 2)
	assert.Equal(t, list[0].URL, rows[0].URL)
	assert.Equal(t, list[2].URL, rows[1].URL)
	assert.Equal(t, int64(2), summary.Succeeded)
	assert.Equal(t, int64(1), summary.Failed)

	require.Len(t, sink.seen, 3)
	assert.Error(t, sink.seen[list[1].URL])
	assert.NoError(t, sink.seen[list[0].URL])
}

func TestProcessBatch_SequentialByDefault(t *testing.T) {
	r := &fakeRunner{}
	_, _ = processBatch(context.Background(), makeSeeds(5), 0, r, testBudget, nil)
	assert.Equal(t, int32(1), r.maxLive.Load())
	assert.Equal(t, int32(5), r.calls.Load())
}

func TestProcessBatch_InterruptKeepsCollected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	list := makeSeeds(5)
	r := &fakeRunner{onRun: func(string) { cancel() }}

	rows, summary := processBatch(ctx, list, 1, r, testBudget, nil)

	assert.Equal(t, int32(1), r.calls.Load(), "no seed starts after the interrupt")
	require.Len(t, rows, 1)
	assert.Equal(t, list[0].URL, rows[0].URL)
	assert.True(t, summary.Interrupted)
}

func TestProcessBatch_Empty(t *testing.T) {
	rows, summary := processBatch(context.Background(), nil, 2, &fakeRunner{}, testBudget, nil)
	assert.Empty(t, rows)
	assert.Equal(t, batchSummary{}, summary)
}

func TestStoreSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	sink, err := openStoreSink(ctx, path, "evidence", 2)
	require.NoError(t, err)

	list := makeSeeds(2)
	r := &fakeRunner{fail: map[string]error{list[1].URL: errors.New("oracle: extraction failed")}}
	_, summary := processBatch(ctx, list, 1, r, testBudget, sink)
	sink.finish(summary.Interrupted)
	sink.Close()

	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusComplete, runs[0].Status)
	assert.Equal(t, "evidence", runs[0].Provider)

	outcomes, err := st.ListOutcomes(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, store.OutcomeOK, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].Attempts)
	assert.Equal(t, store.OutcomeFailed, outcomes[1].Status)
	assert.Equal(t, "oracle: extraction failed", outcomes[1].Error)
}
