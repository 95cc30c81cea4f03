package core

import (
	"errors"
	"sync/atomic"
)

// RTC owns the RTC peripheral, its persisted status and the wakeup callback.
// All methods except HandleWakeupInterrupt must be called from the main
// context.
type RTC struct {
	hw     RTCDriver
	status PersistenceStatus // mirror of the status register

	callback    atomic.Pointer[WakeupCallback]
	wakeupCount atomic.Uint32
}

// NewRTC creates an RTC bound to a hardware driver. Init must be called
// before any calendar access.
func NewRTC(hw RTCDriver) *RTC {
	return &RTC{
		hw:     hw,
		status: StatusUninitialized,
	}
}

// Status returns the persistence status as last read or written
func (r *RTC) Status() PersistenceStatus {
	return r.status
}

// Init brings the RTC up after any reset. A recognized status word means
// the clock source is already latched in the backup domain and only the
// time base is re-applied; anything else gets the full configuration and
// is recorded as InitializedNoTime. On ErrConfigurationRejected the status
// register is left as it was.
func (r *RTC) Init(src ClockSource) (PersistenceStatus, error) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	r.hw.EnableBackupAccess()
	r.hw.ClearFlag(FlagPowerWakeup)

	raw := r.hw.ReadBackup(StatusRegister)
	status := decodeStatus(raw)
	r.status = status
	RecordEvent(EvtStatusRead, status, raw)

	switch status {
	case StatusInitializedWithTime, StatusInitializedNoTime:
		RecordEvent(EvtWarmInit, status, uint32(src))
		if err := r.applyTimeBase(); err != nil {
			return r.status, err
		}
		r.waitForSync()

		r.hw.ClearFlag(FlagWakeupTimer)
		r.hw.ClearLinePending(WakeupLine)
	default:
		RecordEvent(EvtColdInit, status, uint32(src))
		DebugPrintln("[RTC] cold init, source=" + src.String())

		r.selectClockSource(src)
		if err := r.applyTimeBase(); err != nil {
			return r.status, err
		}
		r.writeStatus(StatusInitializedNoTime)
		r.waitForSync()
	}

	// Alarms are unused here, but a previous firmware image may have left
	// alarm A latched.
	r.hw.ClearFlag(FlagAlarmA)

	DebugPrintln("[RTC] init done, status=" + r.status.String())
	return r.status, nil
}

// SetDateTime writes the calendar. Once the RTC has been initialized the
// status is upgraded to InitializedWithTime; it never moves back.
func (r *RTC) SetDateTime(value DateTime, enc Encoding) {
	if enc == BCD {
		value = value.ToBinary()
	}
	r.hw.WriteCalendar(value)
	RecordEvent(EvtDateTimeSet, r.status,
		uint32(value.Hours)<<16|uint32(value.Minutes)<<8|uint32(value.Seconds))

	// A direct field write requires the time base to be asserted again.
	// The prescalers were accepted by Init, so a rejection here is ignored.
	_ = r.hw.InitTimeBase(DefaultTimeBase)

	if r.status != StatusUninitialized {
		r.writeStatus(StatusInitializedWithTime)
	}
}

// GetDateTime reads the calendar and returns it in the requested encoding.
// Fields are undefined before Init.
func (r *RTC) GetDateTime(enc Encoding) DateTime {
	dt := r.hw.ReadCalendar()
	if enc == BCD {
		return dt.ToBCD()
	}
	return dt
}

func (r *RTC) applyTimeBase() error {
	if err := r.hw.InitTimeBase(DefaultTimeBase); err != nil {
		RecordEvent(EvtTimeBaseReject, r.status, 0)
		DebugPrintln("[RTC] time base rejected: " + err.Error())
		return errors.Join(ErrConfigurationRejected, err)
	}
	return nil
}

// waitForSync blocks until the shadow registers reflect the calendar.
// There is no timeout: a stopped RTC clock leaves no usable state.
func (r *RTC) waitForSync() {
	r.hw.RequestSync()
	for !r.hw.Synced() {
	}
}

func (r *RTC) writeStatus(status PersistenceStatus) {
	r.hw.WriteBackup(StatusRegister, uint32(status))
	r.status = status
	RecordEvent(EvtStatusWrite, status, uint32(status))
}
