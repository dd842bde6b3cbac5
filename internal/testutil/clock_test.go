package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_DoesNotMoveOnItsOwn(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	first := clock.Now()
	time.Sleep(time.Millisecond)
	assert.Equal(t, first, clock.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	clock := NewFakeClock(time.Time{})

	got := clock.Advance(90 * time.Second)
	assert.Equal(t, Epoch.Add(90*time.Second), got)
	assert.Equal(t, got, clock.Now())
}

func TestFakeClock_SetNormalizesToUTC(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), clock.Now())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(100*time.Second), clock.Now())
}
