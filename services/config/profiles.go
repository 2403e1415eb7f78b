package config

// DefaultProfile is the board this firmware ships for.
const DefaultProfile = "waveshare-amoled-1.8"

const cfgAmoled18 = `{
  "name": "waveshare-amoled-1.8",
  "i2c": {"bus": 0, "sda": 15, "scl": 14, "speed_hz": 400000, "pullup": true, "glitch_ignore": 7},
  "addr": {"imu": 107, "touch": 56},
  "display": {
    "reset": -1, "width": 368, "height": 448, "buffer_lines": 48,
    "speed_hz": 40000000, "swap_bytes": true, "madctl": 0
  },
  "touch": {
    "speed_hz": 400000, "attempts": 5, "backoff_ms": 80,
    "swap_xy": false, "mirror_x": false, "mirror_y": false, "threshold": 0
  },
  "power": {
    "off": ["DC2", "DC3", "DC4", "DC5", "ALDO1", "ALDO2", "ALDO3", "ALDO4",
            "BLDO1", "BLDO2", "CPUSLDO", "DLDO1", "DLDO2"],
    "on": [
      {"name": "DC3", "mV": 3300},
      {"name": "DC1", "mV": 3300},
      {"name": "ALDO1", "mV": 1800},
      {"name": "ALDO2", "mV": 2800},
      {"name": "ALDO4", "mV": 3000},
      {"name": "ALDO3", "mV": 3300},
      {"name": "BLDO1", "mV": 3300},
      {"name": "BLDO2", "mV": 3300}
    ],
    "irq": ["bat_insert", "bat_remove", "vbus_insert", "vbus_remove",
            "pkey_short", "pkey_long", "chg_done", "chg_start"],
    "precharge_mA": 50,
    "charge_mA": 200,
    "termination_mA": 25,
    "charge_voltage_mV": 4100
  },
  "timing": {"power_settle_ms": 350},
  "telemetry": {"interval_ms": 1000}
}`

var embedded = map[string]string{
	DefaultProfile: cfgAmoled18,
}
