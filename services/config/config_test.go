package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"amoled-bsp/bus"
	"amoled-bsp/drivers/axp2101"
	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"

	"periph.io/x/conn/v3/physic"
)

func mustDefault(t *testing.T) Board {
	t.Helper()
	b, err := Lookup(DefaultProfile)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDefaultProfile(t *testing.T) {
	b := mustDefault(t)
	if b.BusID() != 0 || b.PeripheralSpeed() != 400*physic.KiloHertz {
		t.Fatalf("bus %v speed %v", b.BusID(), b.PeripheralSpeed())
	}
	want := i2cbus.BusConfig{SDA: 15, SCL: 14, GlitchIgnore: 7, PullUp: true}
	if b.BusConfig() != want {
		t.Fatalf("bus config %+v", b.BusConfig())
	}
	if b.Addr != (Addresses{IMU: 0x6B, Touch: 0x38}) {
		t.Fatalf("addresses %+v", b.Addr)
	}
	if b.Display.Width != 368 || b.Display.Height != 448 || b.MaxTransfer() != 368*48*2 {
		t.Fatalf("display %+v", b.Display)
	}
	if b.Touch.Attempts != 5 || b.TouchBackoff() != 80*time.Millisecond || b.TouchSpeed() != 400*physic.KiloHertz {
		t.Fatalf("touch %+v", b.Touch)
	}
	if b.PowerSettle() != 350*time.Millisecond || b.TelemetryInterval() != time.Second {
		t.Fatalf("timing %v %v", b.PowerSettle(), b.TelemetryInterval())
	}
	if b.DisplaySpeed() != 40*physic.MegaHertz {
		t.Fatalf("display speed %v", b.DisplaySpeed())
	}
}

func TestDefaultPowerProfileMatchesDriver(t *testing.T) {
	p, err := mustDefault(t).PowerProfile()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p, axp2101.DefaultProfile()) {
		t.Fatalf("got %+v\nwant %+v", p, axp2101.DefaultProfile())
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("nope"); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("got %v", err)
	}
	if n := Names(); len(n) != 1 || n[0] != DefaultProfile {
		t.Fatalf("names %v", n)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	if _, err := Parse([]byte(`{"name": "x", "colour": "red"}`)); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("got %v", err)
	}
	if _, err := Parse([]byte(`{`)); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Board)
	}{
		{"negative bus", func(b *Board) { b.I2C.Bus = -1 }},
		{"zero speed", func(b *Board) { b.I2C.SpeedHz = 0 }},
		{"bad address", func(b *Board) { b.Addr.Touch = 0x80 }},
		{"zero address", func(b *Board) { b.Addr.IMU = 0 }},
		{"no width", func(b *Board) { b.Display.Width = 0 }},
		{"buffer too tall", func(b *Board) { b.Display.BufferLines = 449 }},
		{"no display speed", func(b *Board) { b.Display.SpeedHz = 0 }},
		{"no touch speed", func(b *Board) { b.Touch.SpeedHz = 0 }},
		{"no attempts", func(b *Board) { b.Touch.Attempts = 0 }},
		{"negative backoff", func(b *Board) { b.Touch.BackoffMs = -1 }},
		{"negative interval", func(b *Board) { b.Telemetry.IntervalMs = -1 }},
		{"unknown rail", func(b *Board) { b.Power.Off = append(b.Power.Off, "DC9") }},
		{"unknown rail on", func(b *Board) { b.Power.On = []Rail{{Name: "LDO", MilliVolts: 3300}} }},
		{"unknown irq", func(b *Board) { b.Power.IRQ = []string{"lightning"} }},
		{"charge voltage", func(b *Board) { b.Power.ChargeVoltageMV = 4150 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustDefault(t)
			tt.mut(&b)
			if err := b.Validate(); !errors.Is(err, errcode.InvalidArgument) {
				t.Fatalf("got %v", err)
			}
		})
	}
	if err := mustDefault(t).Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestServicePublishesRetainedSections(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	NewService(mustDefault(t)).Publish(conn)

	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})
	got := map[string]any{}
	deadline := time.After(300 * time.Millisecond)
	for len(got) < 8 {
		select {
		case m := <-sub.Channel():
			if !m.Retained || len(m.Topic) != 2 {
				t.Fatalf("unexpected message %+v", m)
			}
			got[m.Topic[1]] = m.Payload
		case <-deadline:
			t.Fatalf("only %d sections", len(got))
		}
	}
	if got["name"] != DefaultProfile {
		t.Fatalf("name %v", got["name"])
	}
	if tc, ok := got["touch"].(Touch); !ok || tc.Attempts != 5 {
		t.Fatalf("touch %#v", got["touch"])
	}
}
