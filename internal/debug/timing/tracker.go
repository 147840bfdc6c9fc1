package timing

import (
	"context"
	"sort"
	"sync"
	"time"

	"grain-analysis/internal/logger"
)

type timingKey struct{}

type TimingInfo struct {
	Operation string
	StartTime time.Time
}

// Tracker records how long named pipeline operations take.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
	logger  logger.Logger
	enabled bool
}

func NewTracker(log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		timings: make(map[string][]time.Duration),
		logger:  log,
		enabled: true,
	}
}

// StartTiming returns a child of parent carrying the operation start time.
// Pass the returned context to EndTiming.
func (tt *Tracker) StartTiming(parent context.Context, operation string) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	tt.mu.RLock()
	enabled := tt.enabled
	tt.mu.RUnlock()
	if !enabled {
		return parent
	}

	return context.WithValue(parent, timingKey{}, TimingInfo{
		Operation: operation,
		StartTime: time.Now(),
	})
}

// EndTiming records the elapsed time for the operation started on ctx and
// returns it. Contexts without a start mark return 0.
func (tt *Tracker) EndTiming(ctx context.Context) time.Duration {
	timingInfo, ok := ctx.Value(timingKey{}).(TimingInfo)
	if !ok {
		return 0
	}

	duration := time.Since(timingInfo.StartTime)

	tt.mu.Lock()
	if !tt.enabled {
		tt.mu.Unlock()
		return duration
	}
	tt.timings[timingInfo.Operation] = append(tt.timings[timingInfo.Operation], duration)
	tt.mu.Unlock()

	tt.logger.Debug("TimingTracker", "operation completed", map[string]interface{}{
		"operation":   timingInfo.Operation,
		"duration_ms": duration.Milliseconds(),
	})

	return duration
}

func (tt *Tracker) GetTimings(operation string) []time.Duration {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	timings := tt.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

// Operations lists every recorded operation name, sorted.
func (tt *Tracker) Operations() []string {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	names := make([]string, 0, len(tt.timings))
	for name := range tt.timings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (tt *Tracker) GetAverageTime(operation string) time.Duration {
	timings := tt.GetTimings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}

	return total / time.Duration(len(timings))
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

// Shutdown logs the average of every recorded operation.
func (tt *Tracker) Shutdown() {
	for _, name := range tt.Operations() {
		tt.logger.Info("TimingTracker", "operation summary", map[string]interface{}{
			"operation": name,
			"runs":      len(tt.GetTimings(name)),
			"avg_ms":    tt.GetAverageTime(name).Milliseconds(),
		})
	}
}
