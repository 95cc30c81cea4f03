package core

import "time"

// WakeupInterval is a periodic wakeup request
type WakeupInterval uint8

const (
	WakeupDisabled WakeupInterval = iota
	Wakeup125ms
	Wakeup250ms
	Wakeup500ms
	Wakeup1s
	Wakeup2s
	Wakeup5s
	Wakeup10s
	Wakeup15s
	Wakeup30s
	Wakeup60s

	wakeupIntervalCount
)

const (
	// WakeupLine is the EXTI line the RTC wakeup timer is wired to
	WakeupLine = 22

	// WakeupDivider feeds the counter with RTCCLK/8: 4096 ticks per second
	WakeupDivider = WakeupClockDiv8

	// NVIC priorities of the wakeup vector
	WakeupPreemptionPriority = 1
	WakeupSubPriority        = 0
)

// wakeupReload holds interval*4096 - 1 for each interval
var wakeupReload = [wakeupIntervalCount]uint32{
	WakeupDisabled: 0,
	Wakeup125ms:    0x1FF,
	Wakeup250ms:    0x3FF,
	Wakeup500ms:    0x7FF,
	Wakeup1s:       0xFFF,
	Wakeup2s:       0x1FFF,
	Wakeup5s:       0x4FFF,
	Wakeup10s:      0x9FFF,
	Wakeup15s:      0xEFFF,
	Wakeup30s:      0x1DFFF,
	Wakeup60s:      0x3BFFF,
}

var wakeupPeriod = [wakeupIntervalCount]time.Duration{
	WakeupDisabled: 0,
	Wakeup125ms:    125 * time.Millisecond,
	Wakeup250ms:    250 * time.Millisecond,
	Wakeup500ms:    500 * time.Millisecond,
	Wakeup1s:       time.Second,
	Wakeup2s:       2 * time.Second,
	Wakeup5s:       5 * time.Second,
	Wakeup10s:      10 * time.Second,
	Wakeup15s:      15 * time.Second,
	Wakeup30s:      30 * time.Second,
	Wakeup60s:      60 * time.Second,
}

var wakeupNames = [wakeupIntervalCount]string{
	WakeupDisabled: "disabled",
	Wakeup125ms:    "125ms",
	Wakeup250ms:    "250ms",
	Wakeup500ms:    "500ms",
	Wakeup1s:       "1s",
	Wakeup2s:       "2s",
	Wakeup5s:       "5s",
	Wakeup10s:      "10s",
	Wakeup15s:      "15s",
	Wakeup30s:      "30s",
	Wakeup60s:      "60s",
}

// Valid reports whether iv is one of the defined intervals
func (iv WakeupInterval) Valid() bool {
	return iv < wakeupIntervalCount
}

// Reload returns the wakeup counter reload value for iv
func (iv WakeupInterval) Reload() uint32 {
	if !iv.Valid() {
		return 0
	}
	return wakeupReload[iv]
}

// Period returns the nominal interval length
func (iv WakeupInterval) Period() time.Duration {
	if !iv.Valid() {
		return 0
	}
	return wakeupPeriod[iv]
}

func (iv WakeupInterval) String() string {
	if !iv.Valid() {
		return "unknown"
	}
	return wakeupNames[iv]
}

// MaxWakeupReload is the widest reload a 16-bit WUTR holds
const MaxWakeupReload = 0xFFFF

// FitWakeupReload returns a divider and reload for a counter limited to
// MaxWakeupReload that produce the same period as reload at clock c. Reloads
// that overflow are moved to the 1 Hz calendar clock, which keeps whole
// seconds only.
func FitWakeupReload(c WakeupClock, reload uint32) (WakeupClock, uint32) {
	div := c.Divider()
	if reload <= MaxWakeupReload || div == 0 {
		return c, reload
	}
	perSecond := (uint32(DefaultTimeBase.AsyncPrediv) + 1) * (uint32(DefaultTimeBase.SyncPrediv) + 1)
	secs := (reload + 1) * div / perSecond
	return WakeupClockSpre, secs - 1
}

// ParseWakeupInterval parses the names produced by WakeupInterval.String
func ParseWakeupInterval(s string) (WakeupInterval, error) {
	for iv, name := range wakeupNames {
		if name == s {
			return WakeupInterval(iv), nil
		}
	}
	return WakeupDisabled, ErrUnknownInterval
}

// ConfigureWakeup programs the wakeup timer for iv and arms the interrupt
// path. WakeupDisabled only disarms the interrupt controller entry; the
// counter keeps its divider and reload until the next enable.
func (r *RTC) ConfigureWakeup(iv WakeupInterval) error {
	if !iv.Valid() {
		return ErrUnknownInterval
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	if iv == WakeupDisabled {
		r.hw.DisableWakeupIRQ()
		RecordEvent(EvtWakeupDisarmed, r.status, 0)
		return nil
	}

	reload := wakeupReload[iv]

	r.hw.ClearLinePending(WakeupLine)
	r.hw.ConfigureLineRising(WakeupLine)

	// The divider can only change while the counter is stopped
	r.hw.SetWakeupEnabled(false)
	r.hw.SetWakeupClock(WakeupDivider)
	r.hw.SetWakeupReload(reload)
	r.hw.SetWakeupInterrupt(true)
	r.hw.SetWakeupEnabled(true)

	r.hw.EnableWakeupIRQ(WakeupPreemptionPriority, WakeupSubPriority)

	RecordEvent(EvtWakeupArmed, r.status, reload)
	DebugPrintln("[RTC] wakeup every " + iv.String() + ", reload=" + xtoa(reload))
	return nil
}

// RegisterWakeupCallback installs fn as the wakeup handler, replacing any
// previous one. Register before the first ConfigureWakeup; a tick that fires
// earlier is acknowledged and dropped.
func (r *RTC) RegisterWakeupCallback(fn WakeupCallback) {
	if fn == nil {
		r.callback.Store(nil)
		return
	}
	r.callback.Store(&fn)
}

// HandleWakeupInterrupt is the wakeup vector entry point. Both the timer
// flag and the EXTI edge are cleared before the callback runs; leaving
// either latched re-enters the handler on the next tick.
func (r *RTC) HandleWakeupInterrupt() {
	if !r.hw.FlagPending(FlagWakeupTimer) {
		return
	}
	r.hw.ClearFlag(FlagWakeupTimer)
	r.hw.ClearLinePending(WakeupLine)

	n := r.wakeupCount.Add(1)
	RecordEvent(EvtWakeupFire, r.status, n)

	if cb := r.callback.Load(); cb != nil {
		(*cb)()
	}
}

// WakeupCount returns the number of wakeup interrupts dispatched
func (r *RTC) WakeupCount() uint32 {
	return r.wakeupCount.Load()
}
