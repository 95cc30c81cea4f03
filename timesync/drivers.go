package timesync

import (
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"
	"tinygo.org/x/drivers/pcf8523"
)

// DS3231 is a Source backed by a DS3231 on an I2C bus
type DS3231 struct {
	dev ds3231.Device
}

// NewDS3231 creates a DS3231 source on a preconfigured I2C bus
func NewDS3231(bus drivers.I2C) *DS3231 {
	d := &DS3231{dev: ds3231.New(bus)}
	d.dev.Configure()
	return d
}

// Valid reports whether the oscillator stop flag is clear
func (d *DS3231) Valid() (bool, error) {
	return d.dev.IsTimeValid(), nil
}

func (d *DS3231) Now() (time.Time, error) {
	return d.dev.ReadTime()
}

// PCF8523 registers read directly; the driver only exposes time access
const (
	pcf8523Addr    = 0x68
	pcf8523Seconds = 0x03
	pcf8523OS      = 1 << 7 // oscillator stopped since the flag was cleared
)

// PCF8523 is a Source backed by a PCF8523 on an I2C bus
type PCF8523 struct {
	bus drivers.I2C
	dev pcf8523.Device
}

// NewPCF8523 creates a PCF8523 source on a preconfigured I2C bus
func NewPCF8523(bus drivers.I2C) *PCF8523 {
	return &PCF8523{bus: bus, dev: pcf8523.New(bus)}
}

// Valid reports whether the oscillator stop flag is clear
func (p *PCF8523) Valid() (bool, error) {
	var buf [1]byte
	if err := p.bus.Tx(pcf8523Addr, []byte{pcf8523Seconds}, buf[:]); err != nil {
		return false, err
	}
	return buf[0]&pcf8523OS == 0, nil
}

func (p *PCF8523) Now() (time.Time, error) {
	return p.dev.ReadTime()
}

var (
	_ Source = (*DS3231)(nil)
	_ Source = (*PCF8523)(nil)
)
