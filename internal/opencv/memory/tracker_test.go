package memory

import (
	"testing"

	"grain-analysis/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCountsAllocations(t *testing.T) {
	tr := NewTracker(logger.Nop())

	tr.TrackAllocation(1, 100, "gray")
	tr.TrackAllocation(2, 300, "canvas")
	tr.TrackDeallocation(1, "gray")

	stats := tr.GetStats()
	assert.Equal(t, int64(400), stats.TotalAllocated)
	assert.Equal(t, int64(100), stats.TotalReleased)
	assert.Equal(t, int64(1), stats.ActiveMats)
	assert.Equal(t, int64(400), stats.PeakBytes)
	assert.Equal(t, []string{"canvas"}, tr.LiveTags())
}

func TestTrackerIgnoresUnknownRelease(t *testing.T) {
	tr := NewTracker(nil)

	tr.TrackDeallocation(42, "ghost")

	assert.Zero(t, tr.GetStats().ActiveMats)
	assert.Zero(t, tr.GetStats().TotalReleased)
}

func TestTrackerShutdownDoesNotPanic(t *testing.T) {
	tr := NewTracker(logger.Nop())
	tr.TrackAllocation(7, 10, "edges")
	assert.NotPanics(t, tr.Shutdown)
}
