// Package types holds the payloads published on the bus.
package types

// Link is the state reported for a peripheral.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

// Retained status: bsp/<peripheral>/status
type Status struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}

// Retained stage: bsp/bringup/stage
type StageEvent struct {
	Stage   string `json:"stage"`
	Attempt int    `json:"attempt,omitempty"` // touch attempts only
	Error   string `json:"error,omitempty"`
	TS      int64  `json:"ts_ms"`
}

// Retained summary: bsp/bringup/result
type BringupResult struct {
	Display       bool  `json:"display"`
	Touch         bool  `json:"touch"`
	Degraded      bool  `json:"degraded"`
	TouchAttempts int   `json:"touch_attempts"`
	TS            int64 `json:"ts_ms"`
}

// Retained value: bsp/clock/value
type ClockValue struct {
	Unix    int64 `json:"unix"`
	Stopped bool  `json:"osc_stopped,omitempty"`
}

// Retained value: bsp/power/value
type PowerValue struct {
	TempMilliC       int32  `json:"temp_mC"`
	BatteryMilliV    uint16 `json:"battery_mV"`
	VbusMilliV       uint16 `json:"vbus_mV"`
	SystemMilliV     uint16 `json:"system_mV"`
	BatteryPercent   uint8  `json:"battery_pct"`
	State            string `json:"state"` // "charging" | "discharging" | "standby"
	VbusIn           bool   `json:"vbus_in"`
	VbusGood         bool   `json:"vbus_good"`
	BatteryConnected bool   `json:"battery_connected"`
}

// Retained value: bsp/motion/value
type MotionValue struct {
	AccelMilliG  [3]int32 `json:"accel_mg"`
	GyroMilliDPS [3]int32 `json:"gyro_mdps"`
	TempMilliC   int32    `json:"temp_mC"`
	Timestamp    uint32   `json:"ts_sample"`
}
