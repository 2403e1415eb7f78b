// Package sh8601 drives the SH8601 AMOLED controller over a QSPI-framed SPI
// link.
//
// Every transfer starts with a 4-byte header: an opcode (0x02 for register
// writes, 0x32 for pixel writes) followed by the 24-bit address 0x00 cmd 0x00.
// Parameters or pixel data follow the header in the same transfer.
package sh8601

import (
	"fmt"
	"time"

	"amoled-bsp/errcode"
	"amoled-bsp/x/timex"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	opWriteCmd   = 0x02
	opWriteColor = 0x32

	cmdSWReset    = 0x01
	cmdDisplayOff = 0x28
	cmdDisplayOn  = 0x29
	cmdCASET      = 0x2A
	cmdRASET      = 0x2B
	cmdRAMWR      = 0x2C
	cmdMADCTL     = 0x36
	cmdRAMWRC     = 0x3C
	cmdCOLMOD     = 0x3A
	cmdBrightness = 0x51

	colmodRGB565 = 0x55
)

// Command is one init-table entry: a command byte, its parameters and the
// delay to observe after sending it.
type Command struct {
	Cmd   byte
	Data  []byte
	Delay time.Duration
}

// DefaultInitTable is the 1.8" 368x448 panel's vendor sequence.
var DefaultInitTable = []Command{
	{0x11, []byte{0x00}, 120 * time.Millisecond},
	{0x44, []byte{0x01, 0xD1}, 0},
	{0x35, []byte{0x00}, 0},
	{0x53, []byte{0x20}, 10 * time.Millisecond},
	{0x2A, []byte{0x00, 0x00, 0x01, 0x6F}, 0},
	{0x2B, []byte{0x00, 0x00, 0x01, 0xBF}, 0},
	{0x51, []byte{0x00}, 10 * time.Millisecond},
	{0x29, nil, 10 * time.Millisecond},
	{0x51, []byte{0xFF}, 0},
}

// Config describes the panel and its link.
type Config struct {
	Width, Height int
	Speed         physic.Frequency // default 40 MHz
	MaxTransfer   int              // largest pixel payload per transfer; default one line
	MADCTL        byte
	Reset         gpio.PinOut // optional; software reset when nil
	InitTable     []Command   // nil selects DefaultInitTable
	Sleep         timex.Sleeper
}

// Device is one panel.
type Device struct {
	conn  spi.Conn
	cfg   Config
	sleep timex.Sleeper
	buf   []byte
}

// New connects to the panel on port. It does not send anything.
func New(port spi.Port, cfg Config) (*Device, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &errcode.E{C: errcode.InvalidArgument, Op: "sh8601", Msg: "panel size must be positive"}
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 40 * physic.MegaHertz
	}
	if cfg.MaxTransfer <= 0 {
		cfg.MaxTransfer = cfg.Width * 2
	}
	if cfg.InitTable == nil {
		cfg.InitTable = DefaultInitTable
	}
	c, err := port.Connect(cfg.Speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("sh8601: connect: %w", err)
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = timex.Real
	}
	return &Device{
		conn:  c,
		cfg:   cfg,
		sleep: sleep,
		buf:   make([]byte, 4+cfg.MaxTransfer),
	}, nil
}

func (d *Device) Width() int  { return d.cfg.Width }
func (d *Device) Height() int { return d.cfg.Height }

// MaxTransfer is the pixel payload limit per transfer in bytes.
func (d *Device) MaxTransfer() int { return d.cfg.MaxTransfer }

func header(b []byte, op, cmd byte) {
	b[0], b[1], b[2], b[3] = op, 0x00, cmd, 0x00
}

// Command sends one register write.
func (d *Device) Command(cmd byte, params ...byte) error {
	if len(params) > d.cfg.MaxTransfer {
		return &errcode.E{C: errcode.InvalidArgument, Op: "sh8601", Msg: "too many parameters"}
	}
	header(d.buf, opWriteCmd, cmd)
	n := 4 + copy(d.buf[4:], params)
	if err := d.conn.Tx(d.buf[:n], nil); err != nil {
		return fmt.Errorf("sh8601: cmd %#02x: %w", cmd, err)
	}
	return nil
}

// Reset pulses the reset line, or issues a software reset without one.
func (d *Device) Reset() error {
	if d.cfg.Reset != nil {
		if err := d.cfg.Reset.Out(gpio.Low); err != nil {
			return fmt.Errorf("sh8601: reset low: %w", err)
		}
		d.sleep.Sleep(10 * time.Millisecond)
		if err := d.cfg.Reset.Out(gpio.High); err != nil {
			return fmt.Errorf("sh8601: reset high: %w", err)
		}
	} else if err := d.Command(cmdSWReset); err != nil {
		return err
	}
	d.sleep.Sleep(120 * time.Millisecond)
	return nil
}

// Init sets orientation and 16-bit colour, then plays the init table.
func (d *Device) Init() error {
	if err := d.Command(cmdMADCTL, d.cfg.MADCTL); err != nil {
		return err
	}
	if err := d.Command(cmdCOLMOD, colmodRGB565); err != nil {
		return err
	}
	for _, c := range d.cfg.InitTable {
		if err := d.Command(c.Cmd, c.Data...); err != nil {
			return err
		}
		if c.Delay > 0 {
			d.sleep.Sleep(c.Delay)
		}
	}
	return nil
}

// DisplayOn turns the panel output on or off.
func (d *Device) DisplayOn(on bool) error {
	if on {
		return d.Command(cmdDisplayOn)
	}
	return d.Command(cmdDisplayOff)
}

// SetBrightness writes the display brightness register.
func (d *Device) SetBrightness(v uint8) error { return d.Command(cmdBrightness, v) }

// DrawBitmap writes RGB565 pixels (big-endian on the wire) into the window
// [x1, x2) x [y1, y2). Payloads larger than MaxTransfer are split; the first
// transfer starts a memory write, the rest continue it.
func (d *Device) DrawBitmap(x1, y1, x2, y2 int, data []byte) error {
	if x1 < 0 || y1 < 0 || x2 > d.cfg.Width || y2 > d.cfg.Height || x1 >= x2 || y1 >= y2 {
		return &errcode.E{C: errcode.InvalidArgument, Op: "sh8601.draw",
			Msg: fmt.Sprintf("window (%d,%d)-(%d,%d) outside %dx%d", x1, y1, x2, y2, d.cfg.Width, d.cfg.Height)}
	}
	if want := (x2 - x1) * (y2 - y1) * 2; len(data) != want {
		return &errcode.E{C: errcode.InvalidArgument, Op: "sh8601.draw",
			Msg: fmt.Sprintf("have %d bytes, window needs %d", len(data), want)}
	}
	xe, ye := x2-1, y2-1
	if err := d.Command(cmdCASET, byte(x1>>8), byte(x1), byte(xe>>8), byte(xe)); err != nil {
		return err
	}
	if err := d.Command(cmdRASET, byte(y1>>8), byte(y1), byte(ye>>8), byte(ye)); err != nil {
		return err
	}
	cmd := byte(cmdRAMWR)
	for len(data) > 0 {
		n := copy(d.buf[4:], data)
		header(d.buf, opWriteColor, cmd)
		if err := d.conn.Tx(d.buf[:4+n], nil); err != nil {
			return fmt.Errorf("sh8601: pixels: %w", err)
		}
		data = data[n:]
		cmd = cmdRAMWRC
	}
	return nil
}
