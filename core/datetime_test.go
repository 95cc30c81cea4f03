package core

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestBCDRoundTrip(t *testing.T) {
	c := qt.New(t)
	for v := uint8(0); v < 100; v++ {
		c.Assert(FromBCD(ToBCD(v)), qt.Equals, v)
	}
	c.Assert(ToBCD(59), qt.Equals, uint8(0x59))
	c.Assert(ToBCD(7), qt.Equals, uint8(0x07))
	c.Assert(FromBCD(0x23), qt.Equals, uint8(23))
}

func TestDateTimeFromTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want DateTime
	}{
		{time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			DateTime{Year: 24, Month: 1, Day: 15, WeekDay: Monday, Hours: 10, Minutes: 30}},
		{time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			DateTime{Year: 23, Month: 12, Day: 31, WeekDay: Sunday, Hours: 23, Minutes: 59, Seconds: 59}},
		{time.Date(2100, 3, 1, 0, 0, 0, 0, time.UTC),
			DateTime{Year: 0, Month: 3, Day: 1, WeekDay: Monday}},
		{time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
			DateTime{Year: 99, Month: 12, Day: 31, WeekDay: Friday, Hours: 23, Minutes: 59, Seconds: 59}},
	}

	for _, tt := range tests {
		c := qt.New(t)
		c.Assert(DateTimeFromTime(tt.in), qt.Equals, tt.want)
	}
}

func TestDateTimeTime(t *testing.T) {
	c := qt.New(t)
	dt := DateTime{Year: 24, Month: 2, Day: 29, WeekDay: Thursday, Hours: 6, Minutes: 5, Seconds: 4}
	c.Assert(dt.Time(), qt.Equals, time.Date(2024, 2, 29, 6, 5, 4, 0, time.UTC))
	c.Assert(DateTimeFromTime(dt.Time()), qt.Equals, dt)
}

func TestDateTimeString(t *testing.T) {
	c := qt.New(t)
	dt := DateTime{Year: 24, Month: 1, Day: 15, WeekDay: Monday, Hours: 10, Minutes: 30}
	c.Assert(dt.String(), qt.Equals, "2024-01-15 10:30:00")
}

func TestDecodeStatus(t *testing.T) {
	c := qt.New(t)
	c.Assert(decodeStatus(0x1234), qt.Equals, StatusInitializedNoTime)
	c.Assert(decodeStatus(0x4321), qt.Equals, StatusInitializedWithTime)
	c.Assert(decodeStatus(0), qt.Equals, StatusUninitialized)
	c.Assert(decodeStatus(0xFFFFFFFF), qt.Equals, StatusUninitialized)
	c.Assert(decodeStatus(0x12340000), qt.Equals, StatusUninitialized)
}

func TestParseClockSource(t *testing.T) {
	c := qt.New(t)
	for _, s := range []string{"internal", "lsi"} {
		src, err := ParseClockSource(s)
		c.Assert(err, qt.IsNil)
		c.Assert(src, qt.Equals, ClockInternal)
	}
	src, err := ParseClockSource("lse")
	c.Assert(err, qt.IsNil)
	c.Assert(src, qt.Equals, ClockExternal)

	_, err = ParseClockSource("hse")
	c.Assert(err, qt.ErrorIs, ErrUnknownClockSource)
}
