package idxtable

import (
	"sync/atomic"
	"time"
)

// Clock provides modification timestamps, in unix seconds, for commits.
type Clock interface {
	Now() int64
}

// SystemClock reads wall-clock time, but never returns a smaller value than
// it has returned before.
type SystemClock struct {
	last atomic.Int64
}

func (c *SystemClock) Now() int64 {
	now := time.Now().Unix()
	for {
		last := c.last.Load()
		if now <= last {
			return last
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// FixedClock always returns the same time.
type FixedClock int64

func (c FixedClock) Now() int64 { return int64(c) }

var defaultClock Clock = &SystemClock{}
