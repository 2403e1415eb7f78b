//go:build linux

// cmd/bsp-host/main.go
//
// Bring-up against the Linux host's I²C adapter and spidev port, then a
// one-shot telemetry poll.
package main

import (
	"context"
	"image/color"
	"os"
	"os/signal"

	"amoled-bsp/bus"
	"amoled-bsp/drivers/sh8601"
	"amoled-bsp/i2cbus"
	"amoled-bsp/platform/linux"
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

func main() {
	log := logx.New("bsp-host")
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
	if err := linux.Init(); err != nil {
		return err
	}

	op := &linux.Opener{}
	defer func() {
		if err := op.Close(); err != nil {
			log.Warnw("closing buses", "error", err)
		}
	}()
	reg := i2cbus.NewRegistry(op)
	defer reg.Close()
	brd := board.New(reg)

	var ports []spi.PortCloser
	defer func() {
		for _, p := range ports {
			_ = p.Close()
		}
	}()

	msgs := bus.NewBus(16)
	o := &bringup.Orchestrator{
		Board: b,
		Power: brd.Power(),
		Buses: reg,
		DisplayBus: func(cfg config.Display) (spi.Port, error) {
			p, err := linux.OpenSPI(cfg.Port)
			if err != nil {
				return nil, err
			}
			ports = append(ports, p)
			return p, nil
		},
		NewPanel: func(port spi.Port, cfg sh8601.Config) (bringup.Panel, error) {
			if pin := linux.Pin(b.Display.Reset); pin != nil {
				cfg.Reset = pin
			}
			return bringup.NewSH8601(port, cfg)
		},
		Compositor: display.NewCompositor(),
		Sleep:      timex.Real,
		Log:        logx.New("bringup"),
		Status:     msgs.NewConnection("bringup"),
	}
	res, err := o.Run(ctx)
	if err != nil {
		return err
	}
	res.Display.Clear(color.RGBA{A: 0xFF})
	if err := res.Display.Display(); err != nil {
		return err
	}

	if err := brd.Clock().Init(b.BusID(), b.BusConfig(), b.PeripheralSpeed()); err != nil {
		log.Warnw("clock unavailable", "error", err)
	}
	if err := brd.Motion().Init(b.BusID(), b.BusConfig(), b.Addr.IMU, b.PeripheralSpeed()); err != nil {
		log.Warnw("motion unavailable", "error", err)
	}

	telemetry.New(brd, b.TelemetryInterval(), logx.New("telemetry")).Poll(msgs.NewConnection("telemetry"))
	for _, p := range []string{telemetry.Clock, telemetry.Power, telemetry.Motion} {
		if m, ok := msgs.Retained(telemetry.ValueTopic(p)); ok {
			log.Infow("reading", "peripheral", p, "value", m.Payload)
		}
	}
	log.Infow("bring-up complete", "touch", res.Touch != nil, "degraded", res.Degraded)
	return nil
}
