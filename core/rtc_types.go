package core

import "errors"

// PersistenceStatus is the word kept in the battery-backed status register.
// It records whether the RTC time base has been configured and whether a
// trusted wall-clock value has ever been written.
type PersistenceStatus uint32

const (
	StatusUninitialized       PersistenceStatus = 0
	StatusInitializedNoTime   PersistenceStatus = 0x1234
	StatusInitializedWithTime PersistenceStatus = 0x4321
)

// StatusRegister is the backup register index holding the PersistenceStatus
const StatusRegister = 19

// decodeStatus maps a raw backup register word to a status.
// Anything that is not one of the two initialized codes is Uninitialized.
func decodeStatus(raw uint32) PersistenceStatus {
	switch PersistenceStatus(raw) {
	case StatusInitializedNoTime, StatusInitializedWithTime:
		return PersistenceStatus(raw)
	default:
		return StatusUninitialized
	}
}

func (s PersistenceStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializedNoTime:
		return "initialized-no-time"
	case StatusInitializedWithTime:
		return "initialized-with-time"
	default:
		return "unknown"
	}
}

// ClockSource selects the low-speed oscillator that drives the RTC
type ClockSource uint8

const (
	ClockInternal ClockSource = iota // LSI, on-chip RC, imprecise
	ClockExternal                    // LSE, 32.768 kHz crystal
)

func (c ClockSource) String() string {
	switch c {
	case ClockInternal:
		return "internal"
	case ClockExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseClockSource parses "internal"/"lsi" or "external"/"lse"
func ParseClockSource(s string) (ClockSource, error) {
	switch s {
	case "internal", "lsi":
		return ClockInternal, nil
	case "external", "lse":
		return ClockExternal, nil
	}
	return 0, ErrUnknownClockSource
}

// Encoding describes how DateTime fields are packed
type Encoding uint8

const (
	Binary Encoding = iota
	BCD
)

// HourFormat selects 24-hour or AM/PM operation of the calendar
type HourFormat uint8

const (
	HourFormat24 HourFormat = iota
	HourFormat12
)

// TimeBase is the prescaler configuration producing the 1 Hz calendar tick.
// The RTC clock is divided by (AsyncPrediv+1) * (SyncPrediv+1).
type TimeBase struct {
	HourFormat  HourFormat
	AsyncPrediv uint8  // 7-bit
	SyncPrediv  uint16 // 15-bit
}

// DefaultTimeBase gives a 1 Hz tick from a 32.768 kHz source: 128 * 256.
var DefaultTimeBase = TimeBase{
	HourFormat:  HourFormat24,
	AsyncPrediv: 0x7F,
	SyncPrediv:  0xFF,
}

// Flag identifies a latched status flag the subsystem clears
type Flag uint8

const (
	FlagWakeupTimer Flag = iota // RTC wakeup timer elapsed (WUTF)
	FlagAlarmA                  // RTC alarm A matched (ALRAF)
	FlagPowerWakeup             // power controller wakeup flag (WUF)
)

// WakeupClock is the wakeup timer input clock selection (WUCKSEL encoding)
type WakeupClock uint8

const (
	WakeupClockDiv16 WakeupClock = 0
	WakeupClockDiv8  WakeupClock = 1
	WakeupClockDiv4  WakeupClock = 2
	WakeupClockDiv2  WakeupClock = 3
	WakeupClockSpre  WakeupClock = 4 // 1 Hz calendar clock
)

// Divider returns the RTC clock division applied by c, or 0 for ck_spre.
func (c WakeupClock) Divider() uint32 {
	switch c {
	case WakeupClockDiv16:
		return 16
	case WakeupClockDiv8:
		return 8
	case WakeupClockDiv4:
		return 4
	case WakeupClockDiv2:
		return 2
	default:
		return 0
	}
}

// WakeupCallback is invoked from interrupt context on every wakeup tick
type WakeupCallback func()

var (
	ErrConfigurationRejected = errors.New("rtc: time base configuration rejected")
	ErrUnknownInterval       = errors.New("rtc: unknown wakeup interval")
	ErrUnknownClockSource    = errors.New("rtc: unknown clock source")
)
