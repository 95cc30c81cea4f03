// Package rtcsim simulates the STM32F4 RTC, backup domain, EXTI line and NVIC
// entry behind core.RTCDriver, so the RTC subsystem can be exercised on a
// development host.
//
// Calendar and wakeup counters only move when Advance is called. Oscillator
// readiness and shadow register synchronization are predicates that tests
// can replace to model slow or dead hardware.
//
// A Sim is not safe for concurrent use, with the exception that readiness
// predicates may be backed by values another goroutine changes.
package rtcsim

import (
	"fmt"
	"time"

	"rtckeeper/core"
)

const (
	// RTCClockHz is the frequency of both simulated low-speed oscillators
	RTCClockHz = 32768

	// BackupRegisters is the number of battery-backed words
	BackupRegisters = 20
)

// BackupWrite records one write to a backup register
type BackupWrite struct {
	Index uint8
	Value uint32
}

// Sim is a simulated RTC peripheral
type Sim struct {
	// backup domain: survives Reset, lost on PowerLoss
	backup       [BackupRegisters]uint32
	rtcSource    core.ClockSource
	rtcSelected  bool
	rtcEnabled   bool
	lseEnabled   bool
	lsiEnabled   bool
	timeBase     core.TimeBase
	timeBaseSet  bool
	tr, dr       uint32
	subTicks     uint64
	wute, wutie  bool
	wucksel      core.WakeupClock
	wutr         uint32
	wakeupTicks  uint64
	wutf, alraf  bool
	backupAccess bool

	// reset domain
	rsf        bool
	wuf        bool
	extiIMR    uint32
	extiRTSR   uint32
	extiPR     uint32
	irqEnabled bool
	irqPrio    [2]uint8

	ready     [2]func() bool
	syncReady func() bool
	handler   func()

	// RejectTimeBase, when non-nil, is returned by InitTimeBase
	RejectTimeBase error

	// BackupWrites logs every WriteBackup call
	BackupWrites []BackupWrite

	// Calls logs every driver call in order
	Calls []string

	// TimeBaseInits counts successful InitTimeBase calls
	TimeBaseInits int
}

// New returns a simulator in the state of a first power-on with a fresh
// backup battery: all backup registers zero, RTC clock not selected.
func New() *Sim {
	return &Sim{}
}

var _ core.RTCDriver = (*Sim)(nil)

// SetOscillatorReady replaces the ready predicate for src. nil means the
// oscillator is ready as soon as it is enabled.
func (s *Sim) SetOscillatorReady(src core.ClockSource, ready func() bool) {
	s.ready[src] = ready
}

// SetSyncReady replaces the shadow register synchronization predicate
func (s *Sim) SetSyncReady(ready func() bool) {
	s.syncReady = ready
}

// SetIRQHandler installs the function run when the wakeup vector fires
func (s *Sim) SetIRQHandler(fn func()) {
	s.handler = fn
}

// SetBackup seeds a backup register without logging it, e.g. to model
// garbage left by a brown-out.
func (s *Sim) SetBackup(index uint8, value uint32) {
	s.backup[index] = value
}

// Backup returns the value of a backup register
func (s *Sim) Backup(index uint8) uint32 {
	return s.backup[index]
}

// Reset models a system reset with backup power present. The backup domain
// (backup registers, RTC, clock selection) is retained.
func (s *Sim) Reset() {
	s.rsf = false
	s.wuf = true
	s.extiIMR, s.extiRTSR, s.extiPR = 0, 0, 0
	s.irqEnabled = false
	s.irqPrio = [2]uint8{}
	s.backupAccess = false
	s.Calls = nil
	s.BackupWrites = nil
	s.TimeBaseInits = 0
}

// PowerLoss models losing both main and backup power
func (s *Sim) PowerLoss() {
	*s = Sim{
		ready:          s.ready,
		syncReady:      s.syncReady,
		handler:        s.handler,
		RejectTimeBase: s.RejectTimeBase,
	}
}

func (s *Sim) call(format string, args ...any) {
	s.Calls = append(s.Calls, fmt.Sprintf(format, args...))
}

// ClockTree

func (s *Sim) EnableOscillator(src core.ClockSource) {
	s.call("EnableOscillator(%s)", src)
	if src == core.ClockExternal {
		s.lseEnabled = true
	} else {
		s.lsiEnabled = true
	}
}

func (s *Sim) OscillatorReady(src core.ClockSource) bool {
	enabled := s.lsiEnabled
	if src == core.ClockExternal {
		enabled = s.lseEnabled
	}
	if !enabled {
		return false
	}
	if ready := s.ready[src]; ready != nil {
		return ready()
	}
	return true
}

func (s *Sim) SelectRTCClock(src core.ClockSource) {
	s.call("SelectRTCClock(%s)", src)
	// RTCSEL is write-once until a backup domain reset
	if s.rtcSelected {
		return
	}
	s.rtcSource = src
	s.rtcSelected = true
}

func (s *Sim) EnableRTCClock() {
	s.call("EnableRTCClock")
	s.rtcEnabled = true
}

// RTCClock reports the latched RTC clock source
func (s *Sim) RTCClock() (core.ClockSource, bool) {
	return s.rtcSource, s.rtcSelected
}

// BackupDomain

func (s *Sim) EnableBackupAccess() {
	s.call("EnableBackupAccess")
	s.backupAccess = true
}

func (s *Sim) ReadBackup(index uint8) uint32 {
	return s.backup[index]
}

func (s *Sim) WriteBackup(index uint8, value uint32) {
	s.call("WriteBackup(%d, %#x)", index, value)
	if !s.backupAccess {
		return
	}
	s.backup[index] = value
	s.BackupWrites = append(s.BackupWrites, BackupWrite{Index: index, Value: value})
}

// Calendar

func (s *Sim) InitTimeBase(tb core.TimeBase) error {
	s.call("InitTimeBase(%#x, %#x)", tb.AsyncPrediv, tb.SyncPrediv)
	if s.RejectTimeBase != nil {
		return s.RejectTimeBase
	}
	if tb.AsyncPrediv > 0x7F || tb.SyncPrediv > 0x7FFF {
		return fmt.Errorf("rtcsim: prescaler out of range (async=%#x sync=%#x)", tb.AsyncPrediv, tb.SyncPrediv)
	}
	s.timeBase = tb
	s.timeBaseSet = true
	s.subTicks = 0
	s.rsf = false
	s.TimeBaseInits++
	return nil
}

func (s *Sim) WriteCalendar(dt core.DateTime) {
	s.call("WriteCalendar(%s)", dt)
	s.tr, s.dr = encodeCalendar(dt)
	s.subTicks = 0
	s.rsf = false
}

func (s *Sim) ReadCalendar() core.DateTime {
	return decodeCalendar(s.tr, s.dr)
}

func (s *Sim) RequestSync() {
	s.call("RequestSync")
	s.rsf = false
}

func (s *Sim) Synced() bool {
	if s.rsf {
		return true
	}
	if s.syncReady != nil && !s.syncReady() {
		return false
	}
	s.rsf = true
	return true
}

func (s *Sim) ClearFlag(f core.Flag) {
	s.call("ClearFlag(%d)", f)
	switch f {
	case core.FlagWakeupTimer:
		s.wutf = false
	case core.FlagAlarmA:
		s.alraf = false
	case core.FlagPowerWakeup:
		s.wuf = false
	}
}

func (s *Sim) FlagPending(f core.Flag) bool {
	switch f {
	case core.FlagWakeupTimer:
		return s.wutf
	case core.FlagAlarmA:
		return s.alraf
	case core.FlagPowerWakeup:
		return s.wuf
	}
	return false
}

// LatchFlag sets a status flag as the hardware would
func (s *Sim) LatchFlag(f core.Flag) {
	switch f {
	case core.FlagWakeupTimer:
		s.wutf = true
	case core.FlagAlarmA:
		s.alraf = true
	case core.FlagPowerWakeup:
		s.wuf = true
	}
}

// TimeBase returns the programmed prescalers
func (s *Sim) TimeBase() (core.TimeBase, bool) {
	return s.timeBase, s.timeBaseSet
}

// WakeupTimer

func (s *Sim) SetWakeupEnabled(enabled bool) {
	s.call("SetWakeupEnabled(%t)", enabled)
	s.wute = enabled
	if !enabled {
		s.wakeupTicks = 0
	}
}

func (s *Sim) SetWakeupClock(c core.WakeupClock) {
	s.call("SetWakeupClock(%d)", c)
	if s.wute {
		// WUCKSEL is write protected while the counter runs
		return
	}
	s.wucksel = c
}

func (s *Sim) SetWakeupReload(value uint32) {
	s.call("SetWakeupReload(%#x)", value)
	if s.wute {
		return
	}
	s.wutr = value
}

func (s *Sim) SetWakeupInterrupt(enabled bool) {
	s.call("SetWakeupInterrupt(%t)", enabled)
	s.wutie = enabled
}

// WakeupClock returns the programmed wakeup divider
func (s *Sim) WakeupClock() core.WakeupClock {
	return s.wucksel
}

// WakeupReload returns the programmed reload value
func (s *Sim) WakeupReload() uint32 {
	return s.wutr
}

// WakeupEnabled reports whether the wakeup counter runs
func (s *Sim) WakeupEnabled() bool {
	return s.wute
}

// WakeupInterruptEnabled reports whether the wakeup interrupt source is on
func (s *Sim) WakeupInterruptEnabled() bool {
	return s.wutie
}

// InterruptLine

func (s *Sim) ClearLinePending(line uint8) {
	s.call("ClearLinePending(%d)", line)
	s.extiPR &^= 1 << line
}

func (s *Sim) LinePending(line uint8) bool {
	return s.extiPR&(1<<line) != 0
}

func (s *Sim) ConfigureLineRising(line uint8) {
	s.call("ConfigureLineRising(%d)", line)
	s.extiIMR |= 1 << line
	s.extiRTSR |= 1 << line
}

// PendLine latches an edge on an EXTI line
func (s *Sim) PendLine(line uint8) {
	s.extiPR |= 1 << line
}

// LineArmed reports whether an EXTI line is unmasked with rising edge trigger
func (s *Sim) LineArmed(line uint8) bool {
	bit := uint32(1) << line
	return s.extiIMR&bit != 0 && s.extiRTSR&bit != 0
}

func (s *Sim) EnableWakeupIRQ(preemption, sub uint8) {
	s.call("EnableWakeupIRQ(%d, %d)", preemption, sub)
	s.irqEnabled = true
	s.irqPrio = [2]uint8{preemption, sub}
}

func (s *Sim) DisableWakeupIRQ() {
	s.call("DisableWakeupIRQ")
	s.irqEnabled = false
}

// IRQEnabled reports whether the wakeup vector is armed and its priority
func (s *Sim) IRQEnabled() (enabled bool, preemption, sub uint8) {
	return s.irqEnabled, s.irqPrio[0], s.irqPrio[1]
}

// Advance runs the RTC clock for d, stepping the calendar and the wakeup
// counter and dispatching the wakeup vector on every counter underflow.
func (s *Sim) Advance(d time.Duration) {
	if !s.rtcEnabled || !s.rtcSelected {
		return
	}
	if s.rtcSource == core.ClockInternal && !s.lsiEnabled {
		return
	}
	if s.rtcSource == core.ClockExternal && !s.lseEnabled {
		return
	}

	ticks := uint64(d) * RTCClockHz / uint64(time.Second)
	for ticks > 0 {
		step := ticks
		if s.wute {
			// stop at the next wakeup underflow so the handler sees the
			// calendar as it is at that tick
			if rem := s.wakeupPeriod() - s.wakeupTicks; rem < step {
				step = rem
			}
		}
		ticks -= step
		s.stepCalendar(step)
		if s.wute {
			s.wakeupTicks += step
			if s.wakeupTicks >= s.wakeupPeriod() {
				s.wakeupTicks = 0
				s.wakeupElapsed()
			}
		}
	}
}

func (s *Sim) wakeupPeriod() uint64 {
	if div := s.wucksel.Divider(); div != 0 {
		return (uint64(s.wutr) + 1) * uint64(div)
	}
	return (uint64(s.wutr) + 1) * s.ticksPerSecond()
}

func (s *Sim) ticksPerSecond() uint64 {
	return (uint64(s.timeBase.AsyncPrediv) + 1) * (uint64(s.timeBase.SyncPrediv) + 1)
}

func (s *Sim) stepCalendar(ticks uint64) {
	if !s.timeBaseSet {
		return
	}
	s.subTicks += ticks
	perSecond := s.ticksPerSecond()
	if s.subTicks < perSecond {
		return
	}
	secs := s.subTicks / perSecond
	s.subTicks %= perSecond

	dt := decodeCalendar(s.tr, s.dr)
	before := dt.Time()
	after := before.Add(time.Duration(secs) * time.Second)

	next := core.DateTimeFromTime(after)
	days := int(dayStart(after).Sub(dayStart(before)).Hours() / 24)
	if dt.WeekDay >= 1 && dt.WeekDay <= 7 {
		next.WeekDay = uint8((int(dt.WeekDay)-1+days)%7) + 1
	}
	s.tr, s.dr = encodeCalendar(next)
}

func (s *Sim) wakeupElapsed() {
	s.wutf = true
	bit := uint32(1) << core.WakeupLine
	if s.wutie && s.extiIMR&bit != 0 && s.extiRTSR&bit != 0 {
		s.extiPR |= bit
	}
	if s.irqEnabled && s.extiPR&bit != 0 && s.handler != nil {
		s.handler()
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// encodeCalendar packs binary fields into TR/DR layout. Field widths
// truncate out-of-range values the way the hardware does.
func encodeCalendar(dt core.DateTime) (tr, dr uint32) {
	tr = uint32(core.ToBCD(dt.Hours)&0x3F)<<16 |
		uint32(core.ToBCD(dt.Minutes)&0x7F)<<8 |
		uint32(core.ToBCD(dt.Seconds)&0x7F)
	dr = uint32(core.ToBCD(dt.Year))<<16 |
		uint32(dt.WeekDay&0x7)<<13 |
		uint32(core.ToBCD(dt.Month)&0x1F)<<8 |
		uint32(core.ToBCD(dt.Day)&0x3F)
	return tr, dr
}

func decodeCalendar(tr, dr uint32) core.DateTime {
	return core.DateTime{
		Year:    core.FromBCD(uint8(dr >> 16)),
		Month:   core.FromBCD(uint8(dr>>8) & 0x1F),
		Day:     core.FromBCD(uint8(dr) & 0x3F),
		WeekDay: uint8(dr>>13) & 0x7,
		Hours:   core.FromBCD(uint8(tr>>16) & 0x3F),
		Minutes: core.FromBCD(uint8(tr>>8) & 0x7F),
		Seconds: core.FromBCD(uint8(tr) & 0x7F),
	}
}

// Registers returns the raw TR and DR words
func (s *Sim) Registers() (tr, dr uint32) {
	return s.tr, s.dr
}
