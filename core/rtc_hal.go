package core

// ClockTree controls the low-speed oscillators and the RTC clock mux.
type ClockTree interface {
	// EnableOscillator starts the oscillator for src. Starting an oscillator
	// that already runs is a no-op.
	EnableOscillator(src ClockSource)

	// OscillatorReady reports whether the oscillator for src is stable
	OscillatorReady(src ClockSource) bool

	// SelectRTCClock routes the oscillator for src to the RTC
	SelectRTCClock(src ClockSource)

	// EnableRTCClock gates the RTC clock domain on
	EnableRTCClock()
}

// BackupDomain gives access to the battery-backed registers.
type BackupDomain interface {
	// EnableBackupAccess enables the power interface clock and lifts the
	// backup domain write protection.
	EnableBackupAccess()

	// ReadBackup reads backup register index
	ReadBackup(index uint8) uint32

	// WriteBackup writes backup register index
	WriteBackup(index uint8, value uint32)
}

// Calendar is the RTC time/date block.
type Calendar interface {
	// InitTimeBase enters init mode, programs the prescalers and hour format
	// and leaves init mode. Returns an error if the hardware refuses to
	// enter init mode or the prescaler combination.
	InitTimeBase(tb TimeBase) error

	// WriteCalendar writes binary date and time fields
	WriteCalendar(dt DateTime)

	// ReadCalendar reads binary date and time fields
	ReadCalendar() DateTime

	// RequestSync clears the shadow register synchronized flag
	RequestSync()

	// Synced reports whether the shadow registers have been resynchronized
	Synced() bool

	// ClearFlag clears a latched status flag
	ClearFlag(f Flag)

	// FlagPending reports whether a status flag is latched
	FlagPending(f Flag) bool
}

// WakeupTimer is the RTC periodic wakeup counter.
type WakeupTimer interface {
	// SetWakeupEnabled starts or stops the counter. Disabling blocks until
	// the hardware allows the configuration to be changed.
	SetWakeupEnabled(enabled bool)

	// SetWakeupClock selects the counter input clock. Only valid while the
	// counter is disabled.
	SetWakeupClock(c WakeupClock)

	// SetWakeupReload sets the auto-reload value
	SetWakeupReload(value uint32)

	// SetWakeupInterrupt enables or disables the wakeup interrupt source
	SetWakeupInterrupt(enabled bool)
}

// InterruptLine is the external interrupt line and NVIC entry the wakeup
// timer is routed through.
type InterruptLine interface {
	// ClearLinePending clears the latched edge on an EXTI line
	ClearLinePending(line uint8)

	// LinePending reports whether an EXTI line has a latched edge
	LinePending(line uint8) bool

	// ConfigureLineRising puts an EXTI line in interrupt mode, rising edge
	ConfigureLineRising(line uint8)

	// EnableWakeupIRQ arms the wakeup vector in the interrupt controller
	EnableWakeupIRQ(preemption, sub uint8)

	// DisableWakeupIRQ disarms the wakeup vector
	DisableWakeupIRQ()
}

// RTCDriver is the complete hardware capability set the RTC subsystem uses.
// Platform-specific implementations live under targets/; host/rtcsim
// provides a simulated one for tests.
type RTCDriver interface {
	ClockTree
	BackupDomain
	Calendar
	WakeupTimer
	InterruptLine
}
