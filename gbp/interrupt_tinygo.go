//go:build tinygo

package gbp

import "runtime/interrupt"

type critState = interrupt.State

func disableInterrupts() critState {
	return interrupt.Disable()
}

func restoreInterrupts(state critState) {
	interrupt.Restore(state)
}
