package util

import (
	"strings"
	"testing"
	"time"
)

func TestSkipThrottler(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tt := NewSkipThrottler(time.Minute)
	tt.now = func() time.Time { return now }

	if !tt.Ok() {
		t.Fatalf("first call should pass")
	}
	now = now.Add(30 * time.Second)
	if tt.Ok() {
		t.Fatalf("call within a minute should be skipped")
	}
	now = now.Add(31 * time.Second)
	if !tt.Ok() {
		t.Fatalf("call after a minute should pass")
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()
	p := NewProgress(3, time.Hour)

	// The first step passes the throttler, the second is skipped, the last is always reported.
	if _, ok := p.Step(); !ok {
		t.Fatalf("first step not reported")
	}
	if _, ok := p.Step(); ok {
		t.Fatalf("second step reported")
	}
	line, ok := p.Step()
	if !ok {
		t.Fatalf("last step not reported")
	}
	if !strings.HasPrefix(line, "3/3 1.00") {
		t.Fatalf("%s", line)
	}
}
