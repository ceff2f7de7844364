package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDaily(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 3, 10, 1, 30, 0, 0, loc),
			want: time.Date(2025, 3, 10, 2, 0, 0, 0, loc),
		},
		{
			name: "exactly at run time moves to tomorrow",
			now:  time.Date(2025, 3, 10, 2, 0, 0, 0, loc),
			want: time.Date(2025, 3, 11, 2, 0, 0, 0, loc),
		},
		{
			name: "month rollover",
			now:  time.Date(2025, 3, 31, 23, 0, 0, 0, loc),
			want: time.Date(2025, 4, 1, 2, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(NextDaily(tt.now, 2, 0)))
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("09:45")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)

	_, _, err = ParseClock("nine")
	assert.Error(t, err)
}

func TestSchedulerIntervalJob(t *testing.T) {
	s := NewScheduler(time.UTC)

	var runs int32
	require.NoError(t, s.AddInterval("tick", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))
}

func TestSchedulerRejectsBadJobs(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.AddDaily("sweep", "2am", func(context.Context) error { return nil }))
	assert.Error(t, s.AddInterval("tick", 0, func(context.Context) error { return nil }))
}
