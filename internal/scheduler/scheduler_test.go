package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerRunner_Fires(t *testing.T) {
	r := NewTimerRunner()
	done := make(chan struct{})

	r.ScheduleOnce(10*time.Millisecond, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task never fired")
	}
}

func TestTimerRunner_Cancel(t *testing.T) {
	r := NewTimerRunner()
	fired := make(chan struct{})

	h := r.ScheduleOnce(50*time.Millisecond, func() {
		close(fired)
	})

	require.True(t, h.Cancel())

	select {
	case <-fired:
		t.Fatal("cancelled task fired anyway")
	case <-time.After(150 * time.Millisecond):
	}

	// A second cancel reports that nothing was stopped.
	assert.False(t, h.Cancel())
}

func TestTimerRunner_CancelAfterFire(t *testing.T) {
	r := NewTimerRunner()
	done := make(chan struct{})

	h := r.ScheduleOnce(time.Millisecond, func() {
		close(done)
	})

	<-done
	assert.False(t, h.Cancel())
}
