package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerRunsLatestOnly(t *testing.T) {
	d := New(20 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Value

	for _, q := range []string{"a", "ab", "abc"} {
		q := q
		d.Trigger(func() {
			calls.Add(1)
			last.Store(q)
		})
	}
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "abc", last.Load())
	assert.False(t, d.Pending())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancel(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })

	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestZeroDelayRunsInline(t *testing.T) {
	d := New(0)
	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, ran)
	assert.False(t, d.Pending())
	assert.Equal(t, time.Duration(0), d.Delay())
}
