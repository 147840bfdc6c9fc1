package memory

import (
	"sort"
	"sync"
	"time"

	"grain-analysis/internal/logger"
)

// Tracker records every safe.Mat allocation so leaks show up at shutdown.
type Tracker struct {
	allocations map[uint64]*AllocationRecord
	mu          sync.RWMutex
	stats       Stats
	logger      logger.Logger
}

type AllocationRecord struct {
	Tag       string
	CreatedAt time.Time
	Size      int64
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PeakBytes      int64
}

func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		allocations: make(map[uint64]*AllocationRecord),
		logger:      log,
	}
}

func (t *Tracker) TrackAllocation(id uint64, size int64, tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.allocations[id] = &AllocationRecord{
		Tag:       tag,
		CreatedAt: time.Now(),
		Size:      size,
	}
	t.stats.TotalAllocated += size
	t.stats.ActiveMats++

	if inUse := t.stats.TotalAllocated - t.stats.TotalReleased; inUse > t.stats.PeakBytes {
		t.stats.PeakBytes = inUse
	}
}

func (t *Tracker) TrackDeallocation(id uint64, tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, exists := t.allocations[id]
	if !exists {
		t.logger.Warning("MemoryTracker", "release of untracked Mat", map[string]interface{}{
			"tag": tag,
		})
		return
	}

	delete(t.allocations, id)
	t.stats.TotalReleased += record.Size
	t.stats.ActiveMats--
}

func (t *Tracker) GetStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// LiveTags lists the tags of Mats that are still open, sorted.
func (t *Tracker) LiveTags() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tags := make([]string, 0, len(t.allocations))
	for _, record := range t.allocations {
		tags = append(tags, record.Tag)
	}
	sort.Strings(tags)
	return tags
}

// Shutdown logs the final allocation picture. It does not close anything:
// Mats belong to whoever created them.
func (t *Tracker) Shutdown() {
	stats := t.GetStats()
	fields := map[string]interface{}{
		"allocated_bytes": stats.TotalAllocated,
		"released_bytes":  stats.TotalReleased,
		"peak_bytes":      stats.PeakBytes,
		"active_mats":     stats.ActiveMats,
	}

	if stats.ActiveMats > 0 {
		fields["live_tags"] = t.LiveTags()
		t.logger.Warning("MemoryTracker", "Mats still open at shutdown", fields)
		return
	}

	t.logger.Debug("MemoryTracker", "all Mats released", fields)
}
