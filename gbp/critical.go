package gbp

// CriticalSection disables interrupts and returns an opaque token that
// must be passed to EndCriticalSection. It is exported so that packages
// outside gbp (the sched maintenance loop, foreground bridge code) can
// guard access to engine state shared with the edge handlers without
// reaching into gbp internals.
func CriticalSection() critState {
	return disableInterrupts()
}

// EndCriticalSection restores the interrupt state captured by CriticalSection.
func EndCriticalSection(state critState) {
	restoreInterrupts(state)
}
