package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	start := time.Date(2024, 9, 1, 15, 30, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "first") })
	c.AfterFunc(10*time.Second, func() { fired = append(fired, "later") })

	c.Advance(5 * time.Second)

	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, start.Add(5*time.Second), c.Now())
}

func TestFake_StopPreventsCallback(t *testing.T) {
	c := NewFake(time.Now())

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_StopAfterFireReturnsFalse(t *testing.T) {
	c := NewFake(time.Now())
	timer := c.AfterFunc(time.Second, func() {})

	c.Advance(time.Second)

	assert.False(t, timer.Stop())
}

func TestSystem_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	NewSystem().AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
