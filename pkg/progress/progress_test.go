package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTrackerCadence(t *testing.T) {
	var calls [][2]int
	tr := NewTracker(zap.NewNop(), "test", func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	}, 250, 100)

	for i := 0; i < 250; i++ {
		tr.Add(1)
	}

	assert.Equal(t, [][2]int{{100, 250}, {200, 250}, {250, 250}}, calls)
	assert.Equal(t, 250, tr.Completed())
}

func TestTrackerNilCallback(t *testing.T) {
	tr := NewTracker(nil, "test", nil, 10, 1)
	tr.Add(10)
	assert.Equal(t, 10, tr.Completed())
}

func TestTrackerRecoversPanics(t *testing.T) {
	tr := NewTracker(zap.NewNop(), "test", func(int, int) {
		panic("display closed")
	}, 3, 1)

	assert.NotPanics(t, func() {
		tr.Add(1)
		tr.Add(1)
		tr.Add(1)
	})
	assert.Equal(t, 3, tr.Failures())
	assert.Equal(t, 3, tr.Completed())
}

func TestTrackerConcurrentMonotonic(t *testing.T) {
	var last int
	monotonic := true
	tr := NewTracker(zap.NewNop(), "test", func(completed, _ int) {
		if completed < last {
			monotonic = false
		}
		last = completed
	}, 1000, 10)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 125; i++ {
				tr.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.True(t, monotonic)
	assert.Equal(t, 1000, last)
}

func TestEveryPercent(t *testing.T) {
	assert.Equal(t, 50, EveryPercent(5000, 1))
	assert.Equal(t, 1, EveryPercent(10, 1))
	assert.Equal(t, 1, EveryPercent(0, 1))
}
