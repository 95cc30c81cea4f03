package core

// selectClockSource starts the oscillator for src, waits for it and routes it
// to the RTC. Only called on a cold init; the selection is latched in the
// backup domain across warm resets. Repeating it on a running source is
// harmless.
//
// The ready wait is unbounded. A missing crystal hangs the boot here.
func (r *RTC) selectClockSource(src ClockSource) {
	r.hw.EnableOscillator(src)
	for !r.hw.OscillatorReady(src) {
	}
	r.hw.SelectRTCClock(src)
	r.hw.EnableRTCClock()
}
