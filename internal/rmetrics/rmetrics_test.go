package rmetrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotInFlightAndLiveFibers(t *testing.T) {
	var c Counters
	c.FibersCreated.Store(5)
	c.FibersCompleted.Store(3)
	c.OpsSubmitted.Store(10)
	c.OpsCompleted.Store(7)

	snap := c.Snapshot()
	require.EqualValues(t, 2, snap.LiveFibers())
	require.EqualValues(t, 3, snap.InFlight())
}
