package util

import (
	"fmt"
	"time"
)

// SkipThrottler reports Ok at most once per duration, skipping calls in between.
type SkipThrottler struct {
	d    time.Duration
	last time.Time
	now  func() time.Time
}

func NewSkipThrottler(d time.Duration) *SkipThrottler {
	tt := &SkipThrottler{d: d, last: time.Date(0, 0, 0, 0, 0, 0, 0, time.UTC), now: time.Now}
	return tt
}

func (tt *SkipThrottler) Ok() bool {
	now := tt.now()
	if now.Before(tt.last.Add(tt.d)) {
		return false
	}

	tt.last = now
	return true
}

// Progress counts finished items of a sweep and produces a throttled status line.
type Progress struct {
	Total int
	Done  int

	start     time.Time
	throttler *SkipThrottler
}

func NewProgress(total int, every time.Duration) *Progress {
	return &Progress{Total: total, start: time.Now(), throttler: NewSkipThrottler(every)}
}

// Step marks one item done, and returns a status line if one is due.
// The last item always produces a line.
func (p *Progress) Step() (string, bool) {
	p.Done++
	if !p.throttler.Ok() && p.Done != p.Total {
		return "", false
	}
	elapsed := time.Since(p.start)
	return fmt.Sprintf("%d/%d %.2f %s", p.Done, p.Total, float64(p.Done)/float64(p.Total), elapsed.Round(time.Millisecond)), true
}
