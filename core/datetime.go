package core

import "time"

// Century is added to DateTime.Year when converting to time.Time
const Century = 2000

// Weekday numbering used by the calendar hardware: Monday=1 .. Sunday=7
const (
	Monday    uint8 = 1
	Tuesday   uint8 = 2
	Wednesday uint8 = 3
	Thursday  uint8 = 4
	Friday    uint8 = 5
	Saturday  uint8 = 6
	Sunday    uint8 = 7
)

// DateTime is a calendar value as held by the RTC. Fields are either all
// binary or all BCD; which one is stated by the Encoding passed alongside.
type DateTime struct {
	Year    uint8 // 0-99, offset from Century
	Month   uint8 // 1-12
	Day     uint8 // 1-31
	WeekDay uint8 // 1-7, Monday first
	Hours   uint8 // 0-23
	Minutes uint8 // 0-59
	Seconds uint8 // 0-59
}

// ToBCD packs every field of a binary DateTime
func (dt DateTime) ToBCD() DateTime {
	return DateTime{
		Year:    ToBCD(dt.Year),
		Month:   ToBCD(dt.Month),
		Day:     ToBCD(dt.Day),
		WeekDay: ToBCD(dt.WeekDay),
		Hours:   ToBCD(dt.Hours),
		Minutes: ToBCD(dt.Minutes),
		Seconds: ToBCD(dt.Seconds),
	}
}

// ToBinary unpacks every field of a BCD DateTime
func (dt DateTime) ToBinary() DateTime {
	return DateTime{
		Year:    FromBCD(dt.Year),
		Month:   FromBCD(dt.Month),
		Day:     FromBCD(dt.Day),
		WeekDay: FromBCD(dt.WeekDay),
		Hours:   FromBCD(dt.Hours),
		Minutes: FromBCD(dt.Minutes),
		Seconds: FromBCD(dt.Seconds),
	}
}

// Time converts a binary DateTime to a UTC time.Time
func (dt DateTime) Time() time.Time {
	return time.Date(Century+int(dt.Year), time.Month(dt.Month), int(dt.Day),
		int(dt.Hours), int(dt.Minutes), int(dt.Seconds), 0, time.UTC)
}

// DateTimeFromTime builds a binary DateTime. Years outside
// Century..Century+99 wrap, as they would in the two-digit year field.
func DateTimeFromTime(t time.Time) DateTime {
	wd := uint8(t.Weekday())
	if wd == 0 {
		wd = Sunday
	}
	return DateTime{
		Year:    uint8(((t.Year()-Century)%100 + 100) % 100),
		Month:   uint8(t.Month()),
		Day:     uint8(t.Day()),
		WeekDay: wd,
		Hours:   uint8(t.Hour()),
		Minutes: uint8(t.Minute()),
		Seconds: uint8(t.Second()),
	}
}

// String formats a binary DateTime as "2024-01-15 10:30:00"
func (dt DateTime) String() string {
	return itoa(Century+int(dt.Year)) + "-" + pad2(dt.Month) + "-" + pad2(dt.Day) +
		" " + pad2(dt.Hours) + ":" + pad2(dt.Minutes) + ":" + pad2(dt.Seconds)
}

// ToBCD converts 0-99 to packed BCD
func ToBCD(dec uint8) uint8 {
	return dec + 6*(dec/10)
}

// FromBCD converts packed BCD to binary
func FromBCD(bcd uint8) uint8 {
	return bcd - 6*(bcd>>4)
}
