package board

import (
	"errors"
	"testing"
	"time"

	"amoled-bsp/drivers/pcf85063"
	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"
	"amoled-bsp/platform/sim"

	"periph.io/x/conn/v3/physic"
)

var pins = i2cbus.BusConfig{SDA: 15, SCL: 14, GlitchIgnore: 7, PullUp: true}

const speed = 400 * physic.KiloHertz

func newBoard(t *testing.T) (*Board, *sim.Board, *i2cbus.Registry) {
	t.Helper()
	hw := sim.NewBoard()
	op := sim.NewOpener()
	op.Add(0, hw.Bus)
	reg := i2cbus.NewRegistry(op)
	t.Cleanup(reg.Close)
	return New(reg), hw, reg
}

func TestInitIsIdempotent(t *testing.T) {
	b, _, reg := newBoard(t)
	for i := 0; i < 2; i++ {
		if err := b.Clock().Init(0, pins, speed); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	bus, ok := reg.Lookup(0)
	if !ok {
		t.Fatal("bus not registered")
	}
	if reg.Opens() != 1 || reg.Len() != 1 || bus.Len() != 1 {
		t.Fatalf("opens=%d buses=%d devices=%d", reg.Opens(), reg.Len(), bus.Len())
	}
}

func TestInitConflictOnOtherBus(t *testing.T) {
	b, hw, reg := newBoard(t)
	if err := b.Power().Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
	before := hw.Bus.Count()
	err := b.Power().Init(1, pins, speed)
	if !errors.Is(err, errcode.ConfigConflict) {
		t.Fatalf("got %v", err)
	}
	if reg.Len() != 1 || hw.Bus.Count() != before {
		t.Fatal("conflicting init touched hardware")
	}
}

func TestMotionAddressConflict(t *testing.T) {
	b, _, _ := newBoard(t)
	m := b.Motion()
	if err := m.Init(0, pins, sim.AddrIMU, speed); err != nil {
		t.Fatal(err)
	}
	if err := m.Init(0, pins, sim.AddrIMU, speed); err != nil {
		t.Fatalf("same address: %v", err)
	}
	if err := m.Init(0, pins, 0x6A, speed); !errors.Is(err, errcode.ConfigConflict) {
		t.Fatalf("got %v", err)
	}
}

func TestInitRejectsZeroSpeed(t *testing.T) {
	b, _, reg := newBoard(t)
	if err := b.Clock().Init(0, pins, 0); !errors.Is(err, errcode.InvalidArgument) {
		t.Fatalf("got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatal("bus created for invalid request")
	}
}

func TestAccessorsBeforeInit(t *testing.T) {
	b, _, _ := newBoard(t)
	if _, err := b.Clock().DateTime(); !errors.Is(err, errcode.NotReady) {
		t.Errorf("clock: %v", err)
	}
	if err := b.Clock().WriteRegister(0x04, []byte{0}); !errors.Is(err, errcode.NotReady) {
		t.Errorf("clock write: %v", err)
	}
	if _, err := b.Power().Status(); !errors.Is(err, errcode.NotReady) {
		t.Errorf("power: %v", err)
	}
	if err := b.Power().ApplyDefaults(); !errors.Is(err, errcode.NotReady) {
		t.Errorf("power apply: %v", err)
	}
	if _, err := b.Motion().Sample(); !errors.Is(err, errcode.NotReady) {
		t.Errorf("motion: %v", err)
	}
	if b.Motion().DataReady() {
		t.Error("motion ready before init")
	}
}

func TestAdaptersShareOneBus(t *testing.T) {
	b, _, reg := newBoard(t)
	if err := b.Clock().Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
	if err := b.Power().Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
	if err := b.Motion().Init(0, pins, sim.AddrIMU, speed); err != nil {
		t.Fatal(err)
	}
	bus, _ := reg.Lookup(0)
	if reg.Opens() != 1 || bus.Len() != 3 {
		t.Fatalf("opens=%d devices=%d", reg.Opens(), bus.Len())
	}
	if b.Clock().p.Device().Bus() != b.Power().p.Device().Bus() {
		t.Fatal("adapters hold different bus handles")
	}
}

func TestClockReadWrite(t *testing.T) {
	b, hw, _ := newBoard(t)
	c := b.Clock()
	if err := c.Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
	want := pcf85063.DateTime{Seconds: 30, Minutes: 15, Hours: 12, Day: 15, Weekday: 4, Month: 10, Year: 26}
	if err := c.SetDateTime(want); err != nil {
		t.Fatal(err)
	}
	got, err := c.DateTime()
	if err != nil || got != want {
		t.Fatalf("got %+v, %v", got, err)
	}
	now, err := c.Now()
	if err != nil || !now.Equal(time.Date(2026, 10, 15, 12, 15, 30, 0, time.UTC)) {
		t.Fatalf("now %v, %v", now, err)
	}
	if hw.RTC.Get(0x04) != 0x30 {
		t.Fatalf("seconds register %#x", hw.RTC.Get(0x04))
	}

	hw.RTC.Set(0x04, 0x80|0x30)
	if stopped, err := c.OscillatorStopped(); err != nil || !stopped {
		t.Fatalf("stopped=%v err=%v", stopped, err)
	}
	buf := make([]byte, 1)
	if err := c.ReadRegister(0x04, buf); err != nil || buf[0] != 0xB0 {
		t.Fatalf("raw read %#x, %v", buf[0], err)
	}
}

func TestPowerInitAndDefaults(t *testing.T) {
	b, hw, _ := newBoard(t)
	p := b.Power()
	if err := p.Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
	if err := p.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	if hw.PMU.Get(0x80) != 0x05 || hw.PMU.Get(0x90) != 0x3F {
		t.Fatalf("rails dc=%#x ldo=%#x", hw.PMU.Get(0x80), hw.PMU.Get(0x90))
	}
	st, err := p.Status()
	if err != nil || st.BatteryMV != 3900 || !st.Charging() {
		t.Fatalf("status %+v, %v", st, err)
	}
}

func TestPowerInitFailureIsRetryable(t *testing.T) {
	b, hw, reg := newBoard(t)
	hw.PMU.Set(0x03, 0x00) // wrong chip id
	err := b.Power().Init(0, pins, speed)
	if !errors.Is(err, errcode.ResourceError) {
		t.Fatalf("got %v", err)
	}
	if b.Power().Initialized() {
		t.Fatal("initialised after failed setup")
	}
	bus, _ := reg.Lookup(0)
	if bus.Len() != 0 {
		t.Fatal("failed init kept its binding")
	}

	hw.PMU.Set(0x03, 0x4A)
	if err := b.Power().Init(0, pins, speed); err != nil {
		t.Fatal(err)
	}
}

func TestMotionSample(t *testing.T) {
	b, _, _ := newBoard(t)
	m := b.Motion()
	if err := m.Init(0, pins, sim.AddrIMU, speed); err != nil {
		t.Fatal(err)
	}
	if !m.DataReady() {
		t.Fatal("no data after default config")
	}
	s, err := m.Sample()
	if err != nil || s.AccelMilliG[2] != 1000 {
		t.Fatalf("sample %+v, %v", s, err)
	}
}

func TestInitMissingBus(t *testing.T) {
	b, _, reg := newBoard(t)
	if err := b.Clock().Init(3, pins, speed); !errors.Is(err, errcode.ResourceError) {
		t.Fatalf("got %v", err)
	}
	if reg.Len() != 0 || b.Clock().Initialized() {
		t.Fatal("failed bus creation left state behind")
	}
}
