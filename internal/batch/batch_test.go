package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/scoremerge/internal/merge"
	"github.com/dusk-indust/scoremerge/internal/scorecard"
)

func inputsFor(t *testing.T, groupID int) []merge.Input {
	t.Helper()
	a, _ := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": fmt.Sprintf("alpha-%d", groupID)}},
	})
	b, _ := scorecard.FromDocument(map[string]any{
		"answers": map[string]any{"Q1": map[string]any{"primary": fmt.Sprintf("beta-%d", groupID)}},
	})
	return []merge.Input{
		{Snapshot: a, Source: "a.json"},
		{Snapshot: b, Source: "b.json"},
	}
}

func TestRunner_MatchesSequentialMerge(t *testing.T) {
	var groups []Group
	for i := 0; i < 8; i++ {
		groups = append(groups, Group{
			Name:   fmt.Sprintf("scorecard-%d", i),
			Inputs: inputsFor(t, i),
			Policy: merge.NonDefaultWins,
		})
	}

	results, err := NewRunner(3, nil).Run(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, results, len(groups))

	for i, got := range results {
		require.NoError(t, got.Err)
		assert.Equal(t, groups[i].Name, got.Name, "results keep group order")

		want := merge.Merge(groups[i].Inputs, groups[i].Policy)
		assert.Equal(t, want.Stats, got.Result.Stats,
			"concurrent execution must not change merge outcomes")
		require.Len(t, got.Result.Conflicts, 1)
		assert.Equal(t, want.Conflicts[0].Display(), got.Result.Conflicts[0].Display())
	}
}

func TestRunner_UnboundedLimit(t *testing.T) {
	groups := []Group{{Name: "only", Inputs: inputsFor(t, 0), Policy: merge.LastWins}}

	results, err := NewRunner(0, nil).Run(context.Background(), groups)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Result.Conflicts, "last-wins never records conflicts")
}

func TestRunner_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	counts := map[Status]int{}
	onProgress := func(ev ProgressEvent) {
		mu.Lock()
		counts[ev.Status]++
		mu.Unlock()
	}

	groups := []Group{
		{Name: "g1", Inputs: inputsFor(t, 1), Policy: merge.NonDefaultWins},
		{Name: "g2", Inputs: inputsFor(t, 2), Policy: merge.NonDefaultWins},
	}

	_, err := NewRunner(2, onProgress).Run(context.Background(), groups)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[StatusPending])
	assert.Equal(t, 2, counts[StatusWorking])
	assert.Equal(t, 2, counts[StatusComplete])
	assert.Zero(t, counts[StatusFailed])
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups := []Group{{Name: "g1", Inputs: inputsFor(t, 1), Policy: merge.NonDefaultWins}}
	results, err := NewRunner(1, nil).Run(ctx, groups)

	require.Error(t, err)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
