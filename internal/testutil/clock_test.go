package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	assert.Equal(t, Epoch, NewManualClock(time.Time{}).Now())

	start := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, start, NewManualClock(start).Now())
}

func TestManualClock_OnlyMovesWhenAdvanced(t *testing.T) {
	clock := NewManualClock(time.Time{})

	assert.Equal(t, clock.Now(), clock.Now())
	assert.Equal(t, Epoch.Add(time.Minute), clock.Advance(time.Minute))
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())

	clock.Set(Epoch)
	assert.Equal(t, Epoch, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(50*time.Second), clock.Now())
}
