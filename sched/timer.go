package sched

// TimerFreq is the tick rate the maintenance scheduler counts in.
// It has no relationship to the Game Boy Link Cable's own clock —
// the engine times its packet timeout in milliseconds via Engine.Tick,
// not through this scheduler.
const TimerFreq = 1000 // 1kHz: millisecond maintenance ticks

// GetTime returns the current scheduler time in ticks.
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current scheduler time (host-side tests, or a
// platform tick-source driver feeding real elapsed time).
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromMS converts milliseconds to scheduler ticks.
func TimerFromMS(ms uint32) uint32 {
	return (ms * TimerFreq) / 1000
}

// TimerToMS converts scheduler ticks to milliseconds.
func TimerToMS(ticks uint32) uint32 {
	return (ticks * 1000) / TimerFreq
}

// ProcessTimers dispatches whatever maintenance timers are due as of
// the time last set through SetTime; it does not advance that time
// itself. Call this once per main-loop iteration, after SetTime.
func ProcessTimers() {
	TimerDispatch()
}
