package core_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"rtckeeper/core"
	"rtckeeper/host/rtcsim"
)

// newBoard wires an RTC to a fresh simulator the way a target's main does
func newBoard() (*rtcsim.Sim, *core.RTC) {
	sim := rtcsim.New()
	rtc := core.NewRTC(sim)
	sim.SetIRQHandler(rtc.HandleWakeupInterrupt)
	return sim, rtc
}

// warmReset simulates a reset with backup power and a fresh RTC object
func warmReset(sim *rtcsim.Sim) *core.RTC {
	sim.Reset()
	rtc := core.NewRTC(sim)
	sim.SetIRQHandler(rtc.HandleWakeupInterrupt)
	return rtc
}

func TestInitStatusTransitions(t *testing.T) {
	tests := []struct {
		name       string
		stored     uint32
		wantStatus core.PersistenceStatus
		wantWrites []rtcsim.BackupWrite
	}{
		{"zero", 0, core.StatusInitializedNoTime,
			[]rtcsim.BackupWrite{{Index: core.StatusRegister, Value: 0x1234}}},
		{"garbage", 0xDEADBEEF, core.StatusInitializedNoTime,
			[]rtcsim.BackupWrite{{Index: core.StatusRegister, Value: 0x1234}}},
		{"no time", 0x1234, core.StatusInitializedNoTime, nil},
		{"with time", 0x4321, core.StatusInitializedWithTime, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			sim, rtc := newBoard()
			sim.SetBackup(core.StatusRegister, tt.stored)

			status, err := rtc.Init(core.ClockInternal)
			c.Assert(err, qt.IsNil)
			c.Assert(status, qt.Equals, tt.wantStatus)
			c.Assert(rtc.Status(), qt.Equals, tt.wantStatus)
			c.Assert(sim.BackupWrites, qt.DeepEquals, tt.wantWrites)
			c.Assert(sim.Backup(core.StatusRegister), qt.Equals, uint32(tt.wantStatus))

			for _, w := range sim.BackupWrites {
				c.Assert(w.Value, qt.Not(qt.Equals), uint32(core.StatusUninitialized))
			}
		})
	}
}

func TestInitColdBootConfiguresClock(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()

	_, err := rtc.Init(core.ClockExternal)
	c.Assert(err, qt.IsNil)

	src, selected := sim.RTCClock()
	c.Assert(selected, qt.IsTrue)
	c.Assert(src, qt.Equals, core.ClockExternal)

	tb, ok := sim.TimeBase()
	c.Assert(ok, qt.IsTrue)
	c.Assert(tb, qt.Equals, core.DefaultTimeBase)
	c.Assert(sim.Calls, qt.Contains, "EnableOscillator(external)")
	c.Assert(sim.Calls, qt.Contains, "EnableRTCClock")
}

func TestInitWarmKeepsClockSource(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	_, err := rtc.Init(core.ClockExternal)
	c.Assert(err, qt.IsNil)

	rtc = warmReset(sim)
	status, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, core.StatusInitializedNoTime)

	src, _ := sim.RTCClock()
	c.Assert(src, qt.Equals, core.ClockExternal)
	for _, call := range sim.Calls {
		c.Assert(call, qt.Not(qt.Matches), "EnableOscillator.*|SelectRTCClock.*")
	}
	c.Assert(sim.TimeBaseInits, qt.Equals, 1)
}

func TestInitWarmClearsLatchedFlags(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	sim.SetBackup(core.StatusRegister, uint32(core.StatusInitializedWithTime))
	sim.LatchFlag(core.FlagWakeupTimer)
	sim.LatchFlag(core.FlagAlarmA)
	sim.PendLine(core.WakeupLine)

	_, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(sim.FlagPending(core.FlagWakeupTimer), qt.IsFalse)
	c.Assert(sim.FlagPending(core.FlagAlarmA), qt.IsFalse)
	c.Assert(sim.FlagPending(core.FlagPowerWakeup), qt.IsFalse)
	c.Assert(sim.LinePending(core.WakeupLine), qt.IsFalse)
}

func TestInitColdClearsAlarmFlag(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	sim.LatchFlag(core.FlagAlarmA)

	_, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(sim.FlagPending(core.FlagAlarmA), qt.IsFalse)
}

func TestInitRejectedLeavesStatus(t *testing.T) {
	for _, stored := range []uint32{0xDEADBEEF, 0x1234, 0x4321} {
		c := qt.New(t)
		sim, rtc := newBoard()
		sim.SetBackup(core.StatusRegister, stored)
		hwErr := errors.New("init mode timeout")
		sim.RejectTimeBase = hwErr

		_, err := rtc.Init(core.ClockInternal)
		c.Assert(err, qt.ErrorIs, core.ErrConfigurationRejected)
		c.Assert(err, qt.ErrorIs, hwErr)
		c.Assert(sim.Backup(core.StatusRegister), qt.Equals, stored)
		c.Assert(sim.BackupWrites, qt.HasLen, 0)
	}
}

func TestInitIdempotent(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	_, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	rtc.SetDateTime(core.DateTime{Year: 24, Month: 6, Day: 30, WeekDay: core.Sunday, Hours: 23, Minutes: 59, Seconds: 58}, core.Binary)
	tr, dr := sim.Registers()

	first, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	second, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)

	c.Assert(first, qt.Equals, core.StatusInitializedWithTime)
	c.Assert(second, qt.Equals, first)
	tr2, dr2 := sim.Registers()
	c.Assert(tr2, qt.Equals, tr)
	c.Assert(dr2, qt.Equals, dr)
}

func TestSetDateTimeUpgradesStatusOnce(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	_, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)

	dt := core.DateTime{Year: 24, Month: 1, Day: 15, WeekDay: core.Monday, Hours: 10, Minutes: 30}
	rtc.SetDateTime(dt, core.Binary)
	c.Assert(rtc.Status(), qt.Equals, core.StatusInitializedWithTime)

	rtc.SetDateTime(dt, core.Binary)
	c.Assert(rtc.Status(), qt.Equals, core.StatusInitializedWithTime)

	// No write ever moves the register below InitializedWithTime once there
	seenWithTime := false
	for _, w := range sim.BackupWrites {
		if seenWithTime {
			c.Assert(core.PersistenceStatus(w.Value), qt.Equals, core.StatusInitializedWithTime)
		}
		if core.PersistenceStatus(w.Value) == core.StatusInitializedWithTime {
			seenWithTime = true
		}
	}
	c.Assert(seenWithTime, qt.IsTrue)
}

func TestSetDateTimeBeforeInitKeepsStatus(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()

	rtc.SetDateTime(core.DateTime{Year: 1, Month: 1, Day: 1, WeekDay: core.Monday}, core.Binary)
	c.Assert(rtc.Status(), qt.Equals, core.StatusUninitialized)
	c.Assert(sim.BackupWrites, qt.HasLen, 0)
}

func TestSetDateTimeReassertsTimeBase(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	_, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	before := sim.TimeBaseInits

	rtc.SetDateTime(core.DateTime{Year: 24, Month: 3, Day: 1, WeekDay: core.Friday}, core.Binary)
	c.Assert(sim.TimeBaseInits, qt.Equals, before+1)
}

func TestDateTimeRoundTrip(t *testing.T) {
	values := []core.DateTime{
		{Year: 0, Month: 1, Day: 1, WeekDay: core.Saturday, Hours: 0, Minutes: 0, Seconds: 0},
		{Year: 24, Month: 1, Day: 15, WeekDay: core.Monday, Hours: 10, Minutes: 30, Seconds: 0},
		{Year: 99, Month: 12, Day: 31, WeekDay: core.Thursday, Hours: 23, Minutes: 59, Seconds: 59},
		{Year: 38, Month: 2, Day: 28, WeekDay: core.Sunday, Hours: 12, Minutes: 7, Seconds: 41},
	}

	for _, dt := range values {
		c := qt.New(t)
		_, rtc := newBoard()
		_, err := rtc.Init(core.ClockExternal)
		c.Assert(err, qt.IsNil)

		rtc.SetDateTime(dt.ToBCD(), core.BCD)
		c.Assert(rtc.GetDateTime(core.Binary), qt.Equals, dt)
		c.Assert(rtc.GetDateTime(core.BCD), qt.Equals, dt.ToBCD())

		rtc.SetDateTime(dt, core.Binary)
		c.Assert(rtc.GetDateTime(core.Binary), qt.Equals, dt)
	}
}

func TestColdBootScenario(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	sim.SetBackup(core.StatusRegister, 0xA5A5A5A5)

	status, err := rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, core.StatusInitializedNoTime)

	want := core.DateTime{Year: 24, Month: 1, Day: 15, WeekDay: core.Monday, Hours: 10, Minutes: 30, Seconds: 0}
	rtc.SetDateTime(want, core.Binary)
	c.Assert(rtc.Status(), qt.Equals, core.StatusInitializedWithTime)

	sim.Advance(700 * time.Millisecond)
	got := rtc.GetDateTime(core.Binary)
	elapsed := got.Time().Sub(want.Time())
	c.Assert(elapsed >= 0 && elapsed <= time.Second, qt.IsTrue, qt.Commentf("elapsed %v", elapsed))
	c.Assert(got.Time().Format("2006-01-02 15:04"), qt.Equals, "2024-01-15 10:30")
	c.Assert(got.WeekDay, qt.Equals, core.Monday)

	// warm reset keeps the trusted time
	rtc = warmReset(sim)
	status, err = rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, core.StatusInitializedWithTime)
	c.Assert(rtc.GetDateTime(core.Binary), qt.Equals, got)

	// losing the backup battery starts over
	sim.PowerLoss()
	rtc = core.NewRTC(sim)
	status, err = rtc.Init(core.ClockInternal)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, core.StatusInitializedNoTime)
}

func TestCalendarRollsOverMidnight(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	_, err := rtc.Init(core.ClockExternal)
	c.Assert(err, qt.IsNil)

	rtc.SetDateTime(core.DateTime{Year: 23, Month: 12, Day: 31, WeekDay: core.Sunday, Hours: 23, Minutes: 59, Seconds: 59}, core.Binary)
	sim.Advance(2 * time.Second)

	got := rtc.GetDateTime(core.Binary)
	c.Assert(got, qt.Equals, core.DateTime{Year: 24, Month: 1, Day: 1, WeekDay: core.Monday, Hours: 0, Minutes: 0, Seconds: 1})
}

func TestInitBlocksOnStuckOscillator(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()

	var ready atomic.Bool
	sim.SetOscillatorReady(core.ClockExternal, ready.Load)

	done := make(chan core.PersistenceStatus, 1)
	go func() {
		status, _ := rtc.Init(core.ClockExternal)
		done <- status
	}()

	select {
	case <-done:
		c.Fatal("Init returned while the oscillator was not ready")
	case <-time.After(50 * time.Millisecond):
	}

	ready.Store(true)
	select {
	case status := <-done:
		c.Assert(status, qt.Equals, core.StatusInitializedNoTime)
	case <-time.After(5 * time.Second):
		c.Fatal("Init did not return after the oscillator became ready")
	}
}

func TestInitBlocksUntilSynchronized(t *testing.T) {
	c := qt.New(t)
	sim, rtc := newBoard()
	sim.SetBackup(core.StatusRegister, uint32(core.StatusInitializedWithTime))

	var synced atomic.Bool
	sim.SetSyncReady(synced.Load)

	done := make(chan error, 1)
	go func() {
		_, err := rtc.Init(core.ClockInternal)
		done <- err
	}()

	select {
	case <-done:
		c.Fatal("Init returned before shadow registers synchronized")
	case <-time.After(50 * time.Millisecond):
	}

	synced.Store(true)
	select {
	case err := <-done:
		c.Assert(err, qt.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("Init did not return after synchronization")
	}
}
