// Package sched provides a small cooperative timer list for periodic
// maintenance work that runs alongside the packet engine — OLED
// refreshes, metrics flushes, link-health polling — none of which are
// on the engine's own edge-handling path.
package sched

import "gbprinter/gbp"

// Timer represents a scheduled maintenance event.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SFDone       = 0
	SFReschedule = 1
)

var (
	timerList   *Timer
	currentTime uint32
)

// ScheduleTimer inserts t into the sorted wake-time list.
func ScheduleTimer(t *Timer) {
	state := gbp.CriticalSection()
	defer gbp.EndCriticalSection(state)
	insertTimer(t)
}

func insertTimer(t *Timer) {
	if timerList == nil || t.WakeTime < timerList.WakeTime {
		t.Next = timerList
		timerList = t
		return
	}

	current := timerList
	for current.Next != nil && current.Next.WakeTime < t.WakeTime {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// TimerDispatch runs every due timer, rescheduling those whose handler
// returns SFReschedule.
func TimerDispatch() {
	state := gbp.CriticalSection()
	defer gbp.EndCriticalSection(state)

	for timerList != nil && timerList.WakeTime <= currentTime {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		result := timer.Handler(timer)
		if result == SFReschedule {
			insertTimer(timer)
		}
	}
}
