//go:build stm32f4

package main

import (
	_ "embed"
	"machine"
	"runtime/interrupt"
	"time"

	"device/stm32"

	"rtckeeper/config"
	"rtckeeper/core"
	"rtckeeper/timesync"
)

//go:embed rtc.json
var configJSON []byte

var (
	// rtc is reached from the RTC_WKUP vector
	rtc *core.RTC

	led = machine.LED
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})

	cfg, err := config.LoadConfig(configJSON)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	core.SetDebugEnabled(cfg.Debug)
	if err != nil {
		core.DebugPrintln("[BOOT] bad config, using defaults: " + err.Error())
	}

	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	irq := interrupt.New(stm32.IRQ_RTC_WKUP, func(interrupt.Interrupt) {
		rtc.HandleWakeupInterrupt()
	})
	rtc = core.NewRTC(newRTCHAL(irq))

	// Validate already accepted both fields
	src, _ := cfg.Source()
	iv, _ := cfg.Interval()

	status, err := rtc.Init(src)
	if err != nil {
		core.DebugPrintln("[BOOT] rtc init failed: " + err.Error())
		core.DumpEventRing()
		halt()
	}
	core.DebugPrintln("[BOOT] rtc " + status.String() + ", clock " + src.String())

	syncReference(cfg.ReferenceClock)

	rtc.RegisterWakeupCallback(func() {
		led.Set(!led.Get())
	})
	if err := rtc.ConfigureWakeup(iv); err != nil {
		core.DebugPrintln("[BOOT] wakeup: " + err.Error())
	}

	for {
		time.Sleep(10 * time.Second)
		core.DebugPrintln("[RTC] " + rtc.GetDateTime(core.Binary).String())
	}
}

// syncReference seeds the calendar from an I2C reference clock on I2C1
func syncReference(kind string) {
	if kind == config.ReferenceNone {
		return
	}

	bus := machine.I2C1
	if err := bus.Configure(machine.I2CConfig{}); err != nil {
		core.DebugPrintln("[SYNC] i2c: " + err.Error())
		return
	}

	var ref timesync.Source
	switch kind {
	case config.ReferenceDS3231:
		ref = timesync.NewDS3231(bus)
	case config.ReferencePCF8523:
		ref = timesync.NewPCF8523(bus)
	}

	wrote, err := timesync.Sync(rtc, ref)
	switch {
	case err != nil:
		core.DebugPrintln("[SYNC] " + kind + ": " + err.Error())
	case !wrote:
		core.DebugPrintln("[SYNC] calendar already trusted")
	}
}

func halt() {
	for {
		time.Sleep(time.Second)
	}
}
