// Package timesync seeds the on-chip RTC from an external reference clock.
//
// After a cold boot the RTC reports InitializedNoTime: the time base runs but
// nobody has told it the time. A battery-backed I2C RTC on the same board is
// the usual answer, and Sync copies its time across exactly once.
package timesync

import (
	"errors"
	"fmt"
	"time"

	"rtckeeper/core"
)

// Source is a reference clock
type Source interface {
	// Valid reports whether the reference holds a trusted time
	Valid() (bool, error)

	// Now reads the reference time
	Now() (time.Time, error)
}

// ErrReferenceInvalid is returned when the reference lost its time too
var ErrReferenceInvalid = errors.New("timesync: reference clock has no valid time")

// Sync writes the reference time into rtc unless rtc already holds a trusted
// time. It reports whether the calendar was written. rtc must have been
// initialized.
func Sync(rtc *core.RTC, src Source) (bool, error) {
	if rtc.Status() == core.StatusInitializedWithTime {
		return false, nil
	}
	if err := Resync(rtc, src); err != nil {
		return false, err
	}
	return true, nil
}

// Resync unconditionally writes the reference time into rtc
func Resync(rtc *core.RTC, src Source) error {
	valid, err := src.Valid()
	if err != nil {
		return fmt.Errorf("timesync: checking reference: %w", err)
	}
	if !valid {
		return ErrReferenceInvalid
	}

	now, err := src.Now()
	if err != nil {
		return fmt.Errorf("timesync: reading reference: %w", err)
	}
	rtc.SetDateTime(core.DateTimeFromTime(now.UTC()), core.Binary)
	core.DebugPrintln("[SYNC] calendar set to " + now.UTC().Format(time.DateTime))
	return nil
}

// Drift returns how far rtc is ahead of the reference, at one second
// resolution.
func Drift(rtc *core.RTC, src Source) (time.Duration, error) {
	now, err := src.Now()
	if err != nil {
		return 0, fmt.Errorf("timesync: reading reference: %w", err)
	}
	local := rtc.GetDateTime(core.Binary).Time()
	return local.Sub(now.UTC().Truncate(time.Second)), nil
}
