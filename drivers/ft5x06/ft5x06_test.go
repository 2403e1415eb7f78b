package ft5x06

import (
	"errors"
	"testing"

	"amoled-bsp/platform/sim"

	"tinygo.org/x/drivers/touch"
)

func TestConfigure(t *testing.T) {
	tp := sim.NewTouch()
	tp.Set(regGMode, 0x01)
	d := New(sim.Direct(tp, Address), Config{XMax: 368, YMax: 448, Threshold: 40})
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if tp.Get(regGMode) != gModePolling || tp.Get(regThGroup) != 40 {
		t.Fatalf("mode %#x threshold %d", tp.Get(regGMode), tp.Get(regThGroup))
	}
	if d.ChipID() != 0x64 {
		t.Fatalf("chip id %#x", d.ChipID())
	}
}

func TestConfigureFailsWhenAbsent(t *testing.T) {
	d := New(sim.Direct(sim.NewTouch(), 0x39), Config{})
	if err := d.Configure(); !errors.Is(err, sim.ErrNack) {
		t.Fatalf("got %v", err)
	}
}

func TestReadTouchPoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		x, y uint16
		want touch.Point
	}{
		{"plain", Config{XMax: 368, YMax: 448}, 100, 200, touch.Point{X: 100, Y: 200, Z: 1}},
		{"high bits", Config{XMax: 368, YMax: 448}, 300, 400, touch.Point{X: 300, Y: 400, Z: 1}},
		{"clamped", Config{XMax: 368, YMax: 448}, 500, 600, touch.Point{X: 367, Y: 447, Z: 1}},
		{"swap", Config{XMax: 448, YMax: 368, SwapXY: true}, 10, 20, touch.Point{X: 20, Y: 10, Z: 1}},
		{"mirror", Config{XMax: 368, YMax: 448, MirrorX: true, MirrorY: true}, 0, 0, touch.Point{X: 367, Y: 447, Z: 1}},
		{"unbounded", Config{}, 1000, 2000, touch.Point{X: 1000, Y: 2000, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := sim.NewTouch()
			tp.Press(tt.x, tt.y)
			d := New(sim.Direct(tp, Address), tt.cfg)
			if got := d.ReadTouchPoint(); got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestNoTouch(t *testing.T) {
	tp := sim.NewTouch()
	d := New(sim.Direct(tp, Address), Config{XMax: 368, YMax: 448})
	tp.Press(5, 5)
	tp.Lift()
	if p, ok, err := d.ReadTouch(); ok || err != nil || p != (touch.Point{}) {
		t.Fatalf("got %+v %v %v", p, ok, err)
	}

	// 0xFF is reported by some parts while idle
	tp.Set(regTDStatus, 0xFF)
	if p := d.ReadTouchPoint(); p.Z != 0 {
		t.Fatalf("got %+v", p)
	}
}

func TestReadErrorReportsNoTouch(t *testing.T) {
	d := New(sim.Direct(sim.NewTouch(), 0x39), Config{})
	if p := d.ReadTouchPoint(); p != (touch.Point{}) {
		t.Fatalf("got %+v", p)
	}
	if _, _, err := d.ReadTouch(); err == nil {
		t.Fatal("expected error")
	}
}
