package debouncer

import "time"

// Scheduler is the timer facility a debouncer arms its one-shot alarms
// with. Schedule runs fire after d elapses, unless the returned cancel
// function is called first. A canceled timer may still deliver a late
// fire; the actor filters those by timer token, so implementations do
// not need to guarantee that cancel wins the race.
type Scheduler interface {
	Schedule(d time.Duration, fire func()) (cancel func())
}

type wallScheduler struct{}

func (wallScheduler) Schedule(d time.Duration, fire func()) func() {
	t := time.AfterFunc(d, fire)
	return func() { t.Stop() }
}
