package pipeline

import (
	"context"
	"time"
)

// TimingTracker measures named operations. *timing.Tracker satisfies it.
type TimingTracker interface {
	StartTiming(parent context.Context, operation string) context.Context
	EndTiming(ctx context.Context) time.Duration
}

type nopTiming struct{}

func (nopTiming) StartTiming(parent context.Context, _ string) context.Context { return parent }
func (nopTiming) EndTiming(context.Context) time.Duration                      { return 0 }
