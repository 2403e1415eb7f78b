// cmd/bsp-sim/main.go
//
// Full bring-up and telemetry against the simulated board. The panel is
// driven through a recording SPI port; telemetry values are logged.
package main

import (
	"context"
	"image/color"
	"os"
	"os/signal"

	"amoled-bsp/bus"
	"amoled-bsp/i2cbus"
	"amoled-bsp/platform/sim"
	"amoled-bsp/services/board"
	"amoled-bsp/services/bringup"
	"amoled-bsp/services/config"
	"amoled-bsp/services/display"
	"amoled-bsp/services/telemetry"
	"amoled-bsp/x/logx"
	"amoled-bsp/x/timex"

	"periph.io/x/conn/v3/spi"
)

const profile = config.DefaultProfile

var bars = []color.RGBA{
	{R: 0xFF, A: 0xFF},
	{G: 0xFF, A: 0xFF},
	{B: 0xFF, A: 0xFF},
	{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
}

// drawBars fills the panel with vertical colour bars.
func drawBars(d *display.Display) error {
	w, h := d.Size()
	bw := w / int16(len(bars))
	for i, c := range bars {
		if err := d.FillRectangle(int16(i)*bw, 0, bw, h, c); err != nil {
			return err
		}
	}
	return d.Display()
}

func main() {
	log := logx.New("bsp-sim")
	if err := run(log); err != nil {
		log.Errorw("exit", "error", err)
		os.Exit(1)
	}
}

func run(log logx.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := config.Lookup(profile)
	if err != nil {
		return err
	}

	hw := sim.NewBoard()
	op := sim.NewOpener()
	op.Add(b.BusID(), hw.Bus)
	reg := i2cbus.NewRegistry(op)
	defer reg.Close()
	brd := board.New(reg)

	msgs := bus.NewBus(16)
	config.NewService(b).Start(ctx, msgs.NewConnection("config"))

	port := &sim.Port{}
	o := &bringup.Orchestrator{
		Board:      b,
		Power:      brd.Power(),
		Buses:      reg,
		DisplayBus: func(config.Display) (spi.Port, error) { return port, nil },
		Compositor: display.NewCompositor(),
		Sleep:      timex.Real,
		Log:        logx.New("bringup"),
		Status:     msgs.NewConnection("bringup"),
	}
	res, err := o.Run(ctx)
	if err != nil {
		return err
	}
	if err := drawBars(res.Display); err != nil {
		return err
	}
	log.Infow("panel drawn", "frames", len(port.Frames()), "touch", res.Touch != nil)

	if err := brd.Clock().Init(b.BusID(), b.BusConfig(), b.PeripheralSpeed()); err != nil {
		log.Warnw("clock unavailable", "error", err)
	}
	if err := brd.Motion().Init(b.BusID(), b.BusConfig(), b.Addr.IMU, b.PeripheralSpeed()); err != nil {
		log.Warnw("motion unavailable", "error", err)
	}

	watch := msgs.NewConnection("watch")
	values := watch.Subscribe(bus.T("bsp/+/value"))
	defer watch.Disconnect()

	if err := telemetry.New(brd, b.TelemetryInterval(), logx.New("telemetry")).
		Start(ctx, msgs.NewConnection("telemetry")); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Infow("stopping")
			return nil
		case m := <-values.Channel():
			log.Infow("telemetry", "topic", m.Topic.String(), "value", m.Payload)
			if res.Touch != nil {
				if p := res.Touch.Read(); p.Z > 0 {
					log.Infow("touch", "x", p.X, "y", p.Y)
				}
			}
		}
	}
}
