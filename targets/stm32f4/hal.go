//go:build stm32f4

package main

import (
	"errors"
	"runtime/volatile"
	"unsafe"

	"rtckeeper/core"
)

// STM32F4 peripheral memory map (RM0090)
const (
	rccBase  = 0x40023800
	pwrBase  = 0x40007000
	rtcBase  = 0x40002800
	extiBase = 0x40013C00
)

var (
	rccAPB1ENR = (*volatile.Register32)(unsafe.Pointer(uintptr(rccBase + 0x40)))
	rccBDCR    = (*volatile.Register32)(unsafe.Pointer(uintptr(rccBase + 0x70)))
	rccCSR     = (*volatile.Register32)(unsafe.Pointer(uintptr(rccBase + 0x74)))

	pwrCR  = (*volatile.Register32)(unsafe.Pointer(uintptr(pwrBase + 0x00)))
	pwrCSR = (*volatile.Register32)(unsafe.Pointer(uintptr(pwrBase + 0x04)))

	rtcTR   = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x00)))
	rtcDR   = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x04)))
	rtcCR   = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x08)))
	rtcISR  = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x0C)))
	rtcPRER = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x10)))
	rtcWUTR = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x14)))
	rtcWPR  = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBase + 0x24)))

	extiIMR  = (*volatile.Register32)(unsafe.Pointer(uintptr(extiBase + 0x00)))
	extiRTSR = (*volatile.Register32)(unsafe.Pointer(uintptr(extiBase + 0x08)))
	extiFTSR = (*volatile.Register32)(unsafe.Pointer(uintptr(extiBase + 0x0C)))
	extiPR   = (*volatile.Register32)(unsafe.Pointer(uintptr(extiBase + 0x14)))
)

const (
	rtcBKP0R = rtcBase + 0x50

	apb1enrPWREN = 1 << 28

	bdcrLSEON     = 1 << 0
	bdcrLSERDY    = 1 << 1
	bdcrRTCSELPos = 8
	bdcrRTCSELMsk = 3 << bdcrRTCSELPos
	bdcrRTCSELLSE = 1 << bdcrRTCSELPos
	bdcrRTCSELLSI = 2 << bdcrRTCSELPos
	bdcrRTCEN     = 1 << 15

	csrLSION  = 1 << 0
	csrLSIRDY = 1 << 1

	pwrCRCWUF  = 1 << 2
	pwrCRDBP   = 1 << 8
	pwrCSRWUF  = 1 << 0

	isrWUTWF = 1 << 2
	isrRSF   = 1 << 5
	isrINITF = 1 << 6
	isrINIT  = 1 << 7
	isrALRAF = 1 << 8
	isrWUTF  = 1 << 10

	crWUCKSELMsk = 7
	crFMT        = 1 << 6
	crWUTE       = 1 << 10
	crWUTIE      = 1 << 14

	prerAsyncPos = 16

	// busy-wait bound for INITF and WUTWF, well above the two RTCCLK
	// periods the reference manual gives
	rtcTimeout = 0x10000
)

var errInitTimeout = errors.New("stm32f4: rtc did not enter init mode")

// rtcHAL drives the STM32F4 RTC, backup domain, EXTI line 22 and the
// RTC_WKUP vector.
type rtcHAL struct {
	irq wakeupIRQ
}

var _ core.RTCDriver = (*rtcHAL)(nil)

func newRTCHAL(irq wakeupIRQ) *rtcHAL {
	return &rtcHAL{irq: irq}
}

// wakeupIRQ is the subset of interrupt.Interrupt the driver needs
type wakeupIRQ interface {
	SetPriority(priority uint8)
	Enable()
	Disable()
}

// RTC registers are write protected after backup domain reset
func unlockRTC() {
	rtcWPR.Set(0xCA)
	rtcWPR.Set(0x53)
}

func lockRTC() {
	rtcWPR.Set(0xFF)
}

func enterInit() error {
	if rtcISR.HasBits(isrINITF) {
		return nil
	}
	// all ones so no rc_w0 flag is cleared on the way in
	rtcISR.Set(0xFFFFFFFF)
	for i := 0; i < rtcTimeout; i++ {
		if rtcISR.HasBits(isrINITF) {
			return nil
		}
	}
	return errInitTimeout
}

func exitInit() {
	rtcISR.ClearBits(isrINIT)
}

// ClockTree

func (h *rtcHAL) EnableOscillator(src core.ClockSource) {
	if src == core.ClockExternal {
		rccBDCR.SetBits(bdcrLSEON)
	} else {
		rccCSR.SetBits(csrLSION)
	}
}

func (h *rtcHAL) OscillatorReady(src core.ClockSource) bool {
	if src == core.ClockExternal {
		return rccBDCR.HasBits(bdcrLSERDY)
	}
	return rccCSR.HasBits(csrLSIRDY)
}

// SelectRTCClock programs RTCSEL. The field is write-once until the next
// backup domain reset.
func (h *rtcHAL) SelectRTCClock(src core.ClockSource) {
	sel := uint32(bdcrRTCSELLSI)
	if src == core.ClockExternal {
		sel = bdcrRTCSELLSE
	}
	rccBDCR.ReplaceBits(sel, bdcrRTCSELMsk, 0)
}

func (h *rtcHAL) EnableRTCClock() {
	rccBDCR.SetBits(bdcrRTCEN)
}

// BackupDomain

func (h *rtcHAL) EnableBackupAccess() {
	rccAPB1ENR.SetBits(apb1enrPWREN)
	pwrCR.SetBits(pwrCRDBP)
}

func backupRegister(index uint8) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(rtcBKP0R + uint32(index)*4)))
}

func (h *rtcHAL) ReadBackup(index uint8) uint32 {
	return backupRegister(index).Get()
}

func (h *rtcHAL) WriteBackup(index uint8, value uint32) {
	backupRegister(index).Set(value)
}

// Calendar

func (h *rtcHAL) InitTimeBase(tb core.TimeBase) error {
	if tb.AsyncPrediv > 0x7F || tb.SyncPrediv > 0x7FFF {
		return errors.New("stm32f4: prescaler out of range")
	}

	unlockRTC()
	defer lockRTC()
	if err := enterInit(); err != nil {
		return err
	}

	if tb.HourFormat == core.HourFormat12 {
		rtcCR.SetBits(crFMT)
	} else {
		rtcCR.ClearBits(crFMT)
	}
	// two separate writes, synchronous first
	rtcPRER.Set(uint32(tb.SyncPrediv))
	rtcPRER.SetBits(uint32(tb.AsyncPrediv) << prerAsyncPos)

	exitInit()
	return nil
}

func (h *rtcHAL) WriteCalendar(dt core.DateTime) {
	bcd := dt.ToBCD()
	tr := uint32(bcd.Seconds) | uint32(bcd.Minutes)<<8 | uint32(bcd.Hours&0x3F)<<16
	dr := uint32(bcd.Day) | uint32(bcd.Month)<<8 | uint32(dt.WeekDay&7)<<13 | uint32(bcd.Year)<<16

	unlockRTC()
	defer lockRTC()
	if err := enterInit(); err != nil {
		core.DebugPrintln("[RTC] calendar write dropped: " + err.Error())
		return
	}
	rtcTR.Set(tr)
	rtcDR.Set(dr)
	exitInit()
}

// ReadCalendar reads TR before DR. Reading TR freezes the shadow DR until
// it is read.
func (h *rtcHAL) ReadCalendar() core.DateTime {
	tr := rtcTR.Get()
	dr := rtcDR.Get()
	bcd := core.DateTime{
		Seconds: uint8(tr & 0x7F),
		Minutes: uint8(tr >> 8 & 0x7F),
		Hours:   uint8(tr >> 16 & 0x3F),
		Day:     uint8(dr & 0x3F),
		Month:   uint8(dr >> 8 & 0x1F),
		WeekDay: uint8(dr >> 13 & 0x7),
		Year:    uint8(dr >> 16 & 0xFF),
	}
	return bcd.ToBinary()
}

func (h *rtcHAL) RequestSync() {
	unlockRTC()
	clearISR(isrRSF)
	lockRTC()
}

func (h *rtcHAL) Synced() bool {
	return rtcISR.HasBits(isrRSF)
}

// clearISR clears rc_w0 flags without touching INIT
func clearISR(mask uint32) {
	rtcISR.Set(^(mask | isrINIT) | rtcISR.Get()&isrINIT)
}

func (h *rtcHAL) ClearFlag(f core.Flag) {
	switch f {
	case core.FlagWakeupTimer:
		clearISR(isrWUTF)
	case core.FlagAlarmA:
		clearISR(isrALRAF)
	case core.FlagPowerWakeup:
		pwrCR.SetBits(pwrCRCWUF)
	}
}

func (h *rtcHAL) FlagPending(f core.Flag) bool {
	switch f {
	case core.FlagWakeupTimer:
		return rtcISR.HasBits(isrWUTF)
	case core.FlagAlarmA:
		return rtcISR.HasBits(isrALRAF)
	case core.FlagPowerWakeup:
		return pwrCSR.HasBits(pwrCSRWUF)
	}
	return false
}

// WakeupTimer

func (h *rtcHAL) SetWakeupEnabled(enabled bool) {
	unlockRTC()
	defer lockRTC()
	if enabled {
		rtcCR.SetBits(crWUTE)
		return
	}
	rtcCR.ClearBits(crWUTE)
	for i := 0; i < rtcTimeout && !rtcISR.HasBits(isrWUTWF); i++ {
	}
}

func (h *rtcHAL) SetWakeupClock(c core.WakeupClock) {
	unlockRTC()
	rtcCR.ReplaceBits(uint32(c), crWUCKSELMsk, 0)
	lockRTC()
}

// SetWakeupReload writes WUTR. The register is 16 bits wide, so reloads
// beyond it (30s and 60s at RTCCLK/8) switch the counter to ck_spre. The
// counter is stopped at this point, so WUCKSEL is writable.
func (h *rtcHAL) SetWakeupReload(value uint32) {
	cur := core.WakeupClock(rtcCR.Get() & crWUCKSELMsk)
	clk, reload := core.FitWakeupReload(cur, value)

	unlockRTC()
	if clk != cur {
		rtcCR.ReplaceBits(uint32(clk), crWUCKSELMsk, 0)
	}
	rtcWUTR.Set(reload)
	lockRTC()
}

func (h *rtcHAL) SetWakeupInterrupt(enabled bool) {
	unlockRTC()
	if enabled {
		rtcCR.SetBits(crWUTIE)
	} else {
		rtcCR.ClearBits(crWUTIE)
	}
	lockRTC()
}

// InterruptLine

func (h *rtcHAL) ClearLinePending(line uint8) {
	// rc_w1
	extiPR.Set(1 << line)
}

func (h *rtcHAL) LinePending(line uint8) bool {
	return extiPR.HasBits(1 << line)
}

func (h *rtcHAL) ConfigureLineRising(line uint8) {
	extiIMR.SetBits(1 << line)
	extiRTSR.SetBits(1 << line)
	extiFTSR.ClearBits(1 << line)
}

// EnableWakeupIRQ arms RTC_WKUP. The NVIC implements four priority bits,
// all preemption bits under the default grouping, so sub is not encoded.
func (h *rtcHAL) EnableWakeupIRQ(preemption, sub uint8) {
	h.irq.SetPriority(preemption << 4)
	h.irq.Enable()
}

func (h *rtcHAL) DisableWakeupIRQ() {
	h.irq.Disable()
}
