// Package bringup powers the board, brings the panel up and attaches touch.
//
// Power, display bus and panel failures abort the sequence. Touch is
// optional: it is retried a bounded number of times and its absence only
// marks the result degraded.
package bringup

import (
	"context"
	"io"

	"amoled-bsp/bus"
	"amoled-bsp/drivers/axp2101"
	"amoled-bsp/drivers/ft5x06"
	"amoled-bsp/drivers/sh8601"
	"amoled-bsp/errcode"
	"amoled-bsp/i2cbus"
	"amoled-bsp/services/config"
	"amoled-bsp/services/display"
	"amoled-bsp/types"
	"amoled-bsp/x/logx"
	"amoled-bsp/x/timex"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers/touch"
)

type Stage string

const (
	StagePowerInit       Stage = "power_init"
	StagePowerConfigured Stage = "power_configured"
	StageBusReady        Stage = "bus_ready"
	StagePanelReady      Stage = "panel_ready"
	StageDisplayLive     Stage = "display_live"
	StageTouchAttempt    Stage = "touch_attempt"
	StageDone            Stage = "done"
)

const (
	DefaultTouchAttempts = 5
	TouchSlot            = "touch"
)

var (
	TopicStage  = bus.T("bsp/bringup/stage")
	TopicResult = bus.T("bsp/bringup/result")
)

// Power is the part of the power adapter the sequence drives.
type Power interface {
	Init(id i2cbus.BusID, pins i2cbus.BusConfig, speed physic.Frequency) error
	ApplyProfile(p axp2101.Profile) error
}

// Panel is a display controller that has been connected but not yet reset.
type Panel interface {
	display.Panel
	Reset() error
	Init() error
}

// Compositor registers the panel and the touch input.
type Compositor interface {
	AddDisplay(p display.Panel, cfg display.Config) (*display.Display, error)
	AddTouch(d *display.Display, pointer touch.Pointer) (*display.Input, error)
}

type (
	DisplayBusFunc func(cfg config.Display) (spi.Port, error)
	PanelFunc      func(port spi.Port, cfg sh8601.Config) (Panel, error)
	TouchFunc      func(io i2cbus.RegisterIO, cfg ft5x06.Config) (touch.Pointer, error)
)

// NewSH8601 is the default PanelFunc.
func NewSH8601(port spi.Port, cfg sh8601.Config) (Panel, error) {
	d, err := sh8601.New(port, cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewFT5x06 is the default TouchFunc. The controller must answer its
// configuration writes to count as present.
func NewFT5x06(io i2cbus.RegisterIO, cfg ft5x06.Config) (touch.Pointer, error) {
	d := ft5x06.New(io, cfg)
	if err := d.Configure(); err != nil {
		return nil, err
	}
	return d, nil
}

// Result is handed to the caller; the orchestrator keeps no reference.
type Result struct {
	Display       *display.Display
	Touch         *display.Input // nil when degraded
	Degraded      bool
	TouchAttempts int
}

// Orchestrator runs the bring-up sequence once per Run call.
type Orchestrator struct {
	Board      config.Board
	Power      Power
	Buses      *i2cbus.Registry
	DisplayBus DisplayBusFunc
	NewPanel   PanelFunc // nil selects NewSH8601
	Compositor Compositor
	NewTouch   TouchFunc // nil selects NewFT5x06
	Sleep      timex.Sleeper
	Log        logx.Logger
	Status     *bus.Connection // optional
}

func abort(stage Stage, err error) error {
	return &errcode.E{C: errcode.SequenceAbort, Op: string(stage), Err: err}
}

func (o *Orchestrator) publish(stage Stage, attempt int, err error) {
	if o.Status == nil {
		return
	}
	ev := types.StageEvent{Stage: string(stage), Attempt: attempt, TS: timex.NowMs()}
	if err != nil {
		ev.Error = err.Error()
	}
	o.Status.Publish(o.Status.NewMessage(TopicStage, ev, true))
}

// step runs one fatal stage.
func (o *Orchestrator) step(ctx context.Context, log logx.Logger, stage Stage, fn func() error) error {
	err := ctx.Err()
	if err == nil {
		err = fn()
	}
	o.publish(stage, 0, err)
	if err != nil {
		log.Errorw("bring-up aborted", "stage", string(stage), "error", err)
		return abort(stage, err)
	}
	log.Debugw("stage complete", "stage", string(stage))
	return nil
}

// Run executes the sequence. A fatal stage returns a SequenceAbort error
// naming the stage and no result.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	log := logx.OrNop(o.Log)
	sleep := o.Sleep
	if sleep == nil {
		sleep = timex.Real
	}
	newPanel := o.NewPanel
	if newPanel == nil {
		newPanel = NewSH8601
	}
	b := o.Board

	if err := o.step(ctx, log, StagePowerInit, func() error {
		return o.Power.Init(b.BusID(), b.BusConfig(), b.PeripheralSpeed())
	}); err != nil {
		return nil, err
	}

	if err := o.step(ctx, log, StagePowerConfigured, func() error {
		p, err := b.PowerProfile()
		if err != nil {
			return err
		}
		return o.Power.ApplyProfile(p)
	}); err != nil {
		return nil, err
	}
	sleep.Sleep(b.PowerSettle())

	var port spi.Port
	maxTransfer := b.MaxTransfer()
	if err := o.step(ctx, log, StageBusReady, func() error {
		if o.DisplayBus == nil {
			return errcode.New(errcode.InvalidArgument, "bringup", "no display bus")
		}
		if maxTransfer <= 0 {
			return errcode.New(errcode.InvalidArgument, "bringup", "display buffer is empty")
		}
		var err error
		port, err = o.DisplayBus(b.Display)
		return err
	}); err != nil {
		return nil, err
	}

	var panel Panel
	if err := o.step(ctx, log, StagePanelReady, func() error {
		var err error
		panel, err = newPanel(port, sh8601.Config{
			Width:       b.Display.Width,
			Height:      b.Display.Height,
			Speed:       b.DisplaySpeed(),
			MaxTransfer: maxTransfer,
			MADCTL:      b.Display.MADCTL,
			Sleep:       sleep,
		})
		if err != nil {
			return err
		}
		if err := panel.Reset(); err != nil {
			return err
		}
		if err := panel.Init(); err != nil {
			return err
		}
		return panel.DisplayOn(true)
	}); err != nil {
		closePort(log, port)
		return nil, err
	}

	res := &Result{}
	if err := o.step(ctx, log, StageDisplayLive, func() error {
		var err error
		res.Display, err = o.Compositor.AddDisplay(panel, display.Config{
			Width:       b.Display.Width,
			Height:      b.Display.Height,
			BufferLines: b.Display.BufferLines,
			SwapBytes:   b.Display.SwapBytes,
			EvenAlign:   true,
		})
		return err
	}); err != nil {
		closePort(log, port)
		return nil, err
	}

	o.attachTouch(ctx, log, sleep, res)

	o.publish(StageDone, 0, nil)
	if o.Status != nil {
		o.Status.Publish(o.Status.NewMessage(TopicResult, types.BringupResult{
			Display:       true,
			Touch:         res.Touch != nil,
			Degraded:      res.Degraded,
			TouchAttempts: res.TouchAttempts,
			TS:            timex.NowMs(),
		}, true))
	}
	log.Infow("bring-up done", "touch", res.Touch != nil, "degraded", res.Degraded, "attempts", res.TouchAttempts)
	return res, nil
}

// closePort releases a display bus that an aborted sequence will not hand out.
func closePort(log logx.Logger, port spi.Port) {
	c, ok := port.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warnw("closing display bus", "error", err)
	}
}

// attachTouch never fails the sequence; every failure path ends degraded.
func (o *Orchestrator) attachTouch(ctx context.Context, log logx.Logger, sleep timex.Sleeper, res *Result) {
	b := o.Board
	newTouch := o.NewTouch
	if newTouch == nil {
		newTouch = NewFT5x06
	}
	attempts := b.Touch.Attempts
	if attempts <= 0 {
		attempts = DefaultTouchAttempts
	}

	var pbus *i2cbus.Bus
	if o.Buses != nil {
		pbus, _ = o.Buses.Lookup(b.BusID())
	}
	if pbus == nil {
		log.Warnw("touch disabled: peripheral bus not open", "bus", b.BusID().String())
		res.Degraded = true
		return
	}

	cfg := ft5x06.Config{
		XMax:      b.Display.Width,
		YMax:      b.Display.Height,
		SwapXY:    b.Touch.SwapXY,
		MirrorX:   b.Touch.MirrorX,
		MirrorY:   b.Touch.MirrorY,
		Threshold: b.Touch.Threshold,
	}

	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			log.Warnw("touch abandoned", "error", err)
			res.Degraded = true
			return
		}
		res.TouchAttempts = n
		dev, err := pbus.Bind(TouchSlot, b.Addr.Touch, b.TouchSpeed())
		if err == nil {
			var ptr touch.Pointer
			ptr, err = newTouch(dev.IO(), cfg)
			if err == nil {
				in, aerr := o.Compositor.AddTouch(res.Display, ptr)
				if aerr != nil {
					pbus.Release(dev)
					o.publish(StageTouchAttempt, n, aerr)
					log.Warnw("touch ready but not registered", "error", aerr)
					res.Degraded = true
					return
				}
				o.publish(StageTouchAttempt, n, nil)
				log.Infow("touch ready", "attempt", n, "of", attempts)
				res.Touch = in
				return
			}
			pbus.Release(dev)
		}
		o.publish(StageTouchAttempt, n, err)
		log.Warnw("touch attempt failed", "attempt", n, "of", attempts, "error", err)
		sleep.Sleep(b.TouchBackoff())
	}
	log.Warnw("touch disabled", "attempts", attempts)
	res.Degraded = true
}
