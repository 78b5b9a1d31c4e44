// Package scheduler provides one-shot deferred task execution.
//
// The order service uses it to arm payment-timeout checks without
// depending on a particular concurrency primitive.
package scheduler

import "time"

// Handle allows cancelling a scheduled task before it fires.
type Handle interface {
	// Cancel stops the task. It reports whether the call prevented the
	// task from running; false means the task already fired or was
	// cancelled before.
	Cancel() bool
}

// Runner schedules a callback to run once after a delay.
type Runner interface {
	ScheduleOnce(delay time.Duration, fn func()) Handle
}

// TimerRunner implements Runner on top of the process timer wheel. Each
// scheduled task runs on its own goroutine when the timer fires.
type TimerRunner struct{}

// NewTimerRunner creates a TimerRunner.
func NewTimerRunner() *TimerRunner {
	return &TimerRunner{}
}

// ScheduleOnce runs fn once after delay elapses.
func (TimerRunner) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return timerHandle{t: time.AfterFunc(delay, fn)}
}

type timerHandle struct {
	t *time.Timer
}

func (h timerHandle) Cancel() bool {
	return h.t.Stop()
}
