package telemetry

import (
	"context"
	"testing"
	"time"

	"amoled-bsp/bus"
	"amoled-bsp/i2cbus"
	"amoled-bsp/platform/sim"
	"amoled-bsp/services/board"
	"amoled-bsp/services/config"
	"amoled-bsp/types"

	"github.com/edaniels/golog"
	"periph.io/x/conn/v3/physic"
)

func newBoard(t *testing.T) (*board.Board, *sim.Board) {
	t.Helper()
	hw := sim.NewBoard()
	op := sim.NewOpener()
	op.Add(0, hw.Bus)
	reg := i2cbus.NewRegistry(op, i2cbus.WithTimeout(200*time.Millisecond))
	t.Cleanup(reg.Close)
	return board.New(reg), hw
}

func initAll(t *testing.T, b *board.Board) {
	t.Helper()
	speed := 400 * physic.KiloHertz
	if err := b.Clock().Init(0, i2cbus.BusConfig{}, speed); err != nil {
		t.Fatal(err)
	}
	if err := b.Power().Init(0, i2cbus.BusConfig{}, speed); err != nil {
		t.Fatal(err)
	}
	if err := b.Motion().Init(0, i2cbus.BusConfig{}, sim.AddrIMU, speed); err != nil {
		t.Fatal(err)
	}
}

func retained(t *testing.T, b *bus.Bus, topic bus.Topic) any {
	t.Helper()
	m, ok := b.Retained(topic)
	if !ok {
		t.Fatalf("nothing retained on %s", topic)
	}
	return m.Payload
}

func TestPollPublishesValues(t *testing.T) {
	brd, _ := newBoard(t)
	initAll(t, brd)
	b := bus.NewBus(8)
	s := New(brd, time.Hour, golog.NewTestLogger(t))

	s.Poll(b.NewConnection("telemetry"))

	clk := retained(t, b, ValueTopic(Clock)).(types.ClockValue)
	if time.Unix(clk.Unix, 0).UTC().Year() != 2026 || clk.Stopped {
		t.Fatalf("clock=%+v", clk)
	}
	pwr := retained(t, b, ValueTopic(Power)).(types.PowerValue)
	if pwr.BatteryMilliV != 3900 || pwr.VbusMilliV != 5000 || pwr.BatteryPercent != 76 || pwr.State != "charging" {
		t.Fatalf("power=%+v", pwr)
	}
	mot := retained(t, b, ValueTopic(Motion)).(types.MotionValue)
	if mot.AccelMilliG[2] == 0 {
		t.Fatalf("motion=%+v", mot)
	}
	for _, p := range []string{Clock, Power, Motion} {
		if st := retained(t, b, StatusTopic(p)).(types.Status); st.Link != types.LinkUp {
			t.Fatalf("%s status=%+v", p, st)
		}
	}
}

func TestPollSkipsUninitialised(t *testing.T) {
	brd, _ := newBoard(t)
	b := bus.NewBus(8)
	New(brd, time.Hour, nil).Poll(b.NewConnection("telemetry"))
	for _, p := range []string{Clock, Power, Motion} {
		if _, ok := b.Retained(ValueTopic(p)); ok {
			t.Fatalf("%s published before init", p)
		}
		if _, ok := b.Retained(StatusTopic(p)); ok {
			t.Fatalf("%s status published before init", p)
		}
	}
}

func TestReadErrorMarksDegraded(t *testing.T) {
	brd, hw := newBoard(t)
	initAll(t, brd)
	b := bus.NewBus(8)
	conn := b.NewConnection("telemetry")
	s := New(brd, time.Hour, golog.NewTestLogger(t))
	s.Poll(conn)

	hw.Bus.Detach(sim.AddrRTC)
	s.Poll(conn)
	st := retained(t, b, StatusTopic(Clock)).(types.Status)
	if st.Link != types.LinkDegraded || st.Error == "" {
		t.Fatalf("status=%+v", st)
	}

	hw.Bus.Attach(sim.AddrRTC, hw.RTC)
	s.Poll(conn)
	if st := retained(t, b, StatusTopic(Clock)).(types.Status); st.Link != types.LinkUp {
		t.Fatalf("status after recovery=%+v", st)
	}
}

func TestGetRequest(t *testing.T) {
	brd, _ := newBoard(t)
	if err := brd.Power().Init(0, i2cbus.BusConfig{}, 400*physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	b := bus.NewBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := New(brd, time.Hour, nil).Start(ctx, b.NewConnection("telemetry")); err != nil {
		t.Fatal(err)
	}

	client := b.NewConnection("client")
	rctx, rcancel := context.WithTimeout(ctx, 2*time.Second)
	defer rcancel()

	m, err := client.RequestWait(rctx, client.NewMessage(bus.T("bsp/power/get"), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if pwr, ok := m.Payload.(types.PowerValue); !ok || pwr.SystemMilliV != 4800 {
		t.Fatalf("reply=%#v", m.Payload)
	}

	m, err = client.RequestWait(rctx, client.NewMessage(bus.T("bsp/clock/get"), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if st, ok := m.Payload.(types.Status); !ok || st.Link != types.LinkDown {
		t.Fatalf("reply=%#v", m.Payload)
	}
}

func TestConfigChangesInterval(t *testing.T) {
	brd, _ := newBoard(t)
	initAll(t, brd)
	b := bus.NewBus(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch := b.NewConnection("watch")
	sub := watch.Subscribe(ValueTopic(Clock))

	if err := New(brd, time.Hour, nil).Start(ctx, b.NewConnection("telemetry")); err != nil {
		t.Fatal(err)
	}
	cfg := b.NewConnection("config")
	cfg.Publish(cfg.NewMessage(bus.Topic{"config", "telemetry"}, config.Telemetry{IntervalMs: 5}, true))

	deadline := time.After(2 * time.Second)
	for n := 0; n < 2; n++ {
		select {
		case <-sub.Channel():
		case <-deadline:
			t.Fatalf("got %d clock updates, want 2", n)
		}
	}
}
