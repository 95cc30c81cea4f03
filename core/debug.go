package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures an RTC state change for post-mortem analysis
type Event struct {
	Type   uint8             // Event type code
	Status PersistenceStatus // Status mirror when the event was recorded
	Value  uint32            // Context-dependent value
}

// Event type codes
const (
	EvtStatusRead     = 1 // raw backup register word read at Init
	EvtColdInit       = 2 // full configuration path taken
	EvtWarmInit       = 3 // time base re-applied, clock source kept
	EvtStatusWrite    = 4 // status register written
	EvtTimeBaseReject = 5 // hardware refused the time base
	EvtDateTimeSet    = 6 // calendar written, Value = packed hh:mm:ss
	EvtWakeupArmed    = 7 // wakeup armed, Value = reload count
	EvtWakeupDisarmed = 8 // wakeup vector disarmed
	EvtWakeupFire     = 9 // wakeup interrupt dispatched, Value = fire count
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring buffer (non-blocking, safe from the wakeup ISR)
	eventRing     [EventRingSize]Event
	eventRingHead atomic.Uint32 // total events claimed
	eventsEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer.
// Never call it from interrupt context; use RecordEvent there.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetEventsEnabled turns event capture on or off
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// RecordEvent captures an event in the ring buffer. The slot is claimed
// atomically, so the wakeup ISR may record while main context is mid-call.
func RecordEvent(eventType uint8, status PersistenceStatus, value uint32) {
	if !eventsEnabled {
		return
	}
	idx := (eventRingHead.Add(1) - 1) % EventRingSize
	eventRing[idx] = Event{
		Type:   eventType,
		Status: status,
		Value:  value,
	}
}

// Events returns the recorded events, oldest first
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	start := eventRingHead.Load() % EventRingSize
	for i := uint32(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtStatusRead:
		return "STATUS_READ"
	case EvtColdInit:
		return "COLD_INIT"
	case EvtWarmInit:
		return "WARM_INIT"
	case EvtStatusWrite:
		return "STATUS_WRITE"
	case EvtTimeBaseReject:
		return "TIMEBASE_REJECT!"
	case EvtDateTimeSet:
		return "DATETIME_SET"
	case EvtWakeupArmed:
		return "WAKEUP_ARMED"
	case EvtWakeupDisarmed:
		return "WAKEUP_DISARMED"
	case EvtWakeupFire:
		return "WAKEUP_FIRE"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[RTC] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[RTC] " + eventName(evt.Type) +
			" status=" + evt.Status.String() +
			" value=" + xtoa(evt.Value))
	}
	debugPrintln("[RTC] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead.Store(0)
}
