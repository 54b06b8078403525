package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/stretchr/testify/require"
)

func TestAggregator_CountsEachHolderOnce(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.Open("sess-1", 3)

	require.True(t, a.Record("sess-1", "holder-1", domain.AttendancePresent))
	require.False(t, a.Record("sess-1", "holder-1", domain.AttendancePresent), "replay must not count twice")
	require.False(t, a.Record("sess-1", "holder-1", domain.AttendanceFailed), "first verdict wins")

	tally, ok := a.Snapshot("sess-1")
	require.True(t, ok)
	require.Equal(t, Tally{Present: 1, Failed: 0, Pending: 2, Total: 3}, tally)
}

func TestAggregator_WalkInsGrowTheTotal(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.Open("sess-1", 1)

	require.True(t, a.Record("sess-1", "holder-1", domain.AttendancePresent))
	require.True(t, a.Record("sess-1", "holder-2", domain.AttendanceFailed))

	tally, ok := a.Snapshot("sess-1")
	require.True(t, ok)
	require.Equal(t, Tally{Present: 1, Failed: 1, Pending: 0, Total: 2}, tally)
}

func TestAggregator_UnknownSessionIsRejected(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	require.False(t, a.Record("nope", "holder-1", domain.AttendancePresent))

	_, ok := a.Snapshot("nope")
	require.False(t, ok)
}

func TestAggregator_CloseDropsTheTally(t *testing.T) {
	t.Parallel()

	a := NewAggregator()
	a.Open("sess-1", 2)
	require.True(t, a.Record("sess-1", "holder-1", domain.AttendancePresent))

	a.Close("sess-1")
	_, ok := a.Snapshot("sess-1")
	require.False(t, ok)
}

func TestAggregator_ConcurrentRecordsNeverDoubleCount(t *testing.T) {
	t.Parallel()

	const holders = 50
	a := NewAggregator()
	a.Open("sess-1", holders)

	var wg sync.WaitGroup
	for i := 0; i < holders; i++ {
		holderID := fmt.Sprintf("holder-%d", i)
		// Every holder races five submissions of the same verdict.
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.Record("sess-1", holderID, domain.AttendancePresent)
			}()
		}
	}
	wg.Wait()

	tally, ok := a.Snapshot("sess-1")
	require.True(t, ok)
	require.Equal(t, holders, tally.Present)
	require.Zero(t, tally.Pending)
	require.Equal(t, holders, tally.Total)
}
