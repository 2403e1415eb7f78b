// Package display is the composition boundary between the panel driver and
// whatever draws on it. A Display is an RGB565 framebuffer that implements
// drivers.Displayer and flushes only the dirty area, in bands of a fixed
// number of lines. An Input binds a touch.Pointer to a Display.
package display

import (
	"image"
	"image/color"
	"sync"

	"amoled-bsp/errcode"
	"amoled-bsp/x/mathx"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/touch"
)

// Panel accepts pixel windows; x2 and y2 are exclusive.
type Panel interface {
	DrawBitmap(x1, y1, x2, y2 int, data []byte) error
	DisplayOn(on bool) error
}

type Config struct {
	Width, Height int
	BufferLines   int  // rows per flush band
	SwapBytes     bool // send RGB565 high byte first
	EvenAlign     bool // widen flush areas to even start and end columns/rows
}

// Display is a framebuffer in front of one panel.
type Display struct {
	mu    sync.Mutex
	panel Panel
	cfg   Config
	fb    []uint16
	dirty image.Rectangle
	band  []byte
}

var _ drivers.Displayer = (*Display)(nil)

func newDisplay(p Panel, cfg Config) *Display {
	return &Display{
		panel: p,
		cfg:   cfg,
		fb:    make([]uint16, cfg.Width*cfg.Height),
		band:  make([]byte, cfg.Width*cfg.BufferLines*2),
	}
}

// RGB565 packs c into 5-6-5 bits.
func RGB565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func (d *Display) Size() (x, y int16) { return int16(d.cfg.Width), int16(d.cfg.Height) }

func (d *Display) bounds() image.Rectangle { return image.Rect(0, 0, d.cfg.Width, d.cfg.Height) }

// SetPixel ignores coordinates outside the panel.
func (d *Display) SetPixel(x, y int16, c color.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fill(image.Rect(int(x), int(y), int(x)+1, int(y)+1), RGB565(c))
}

// FillRectangle paints a w×h block with its top-left corner at x, y.
func (d *Display) FillRectangle(x, y, w, h int16, c color.RGBA) error {
	if w <= 0 || h <= 0 {
		return errcode.New(errcode.InvalidArgument, "display.fill", "empty rectangle")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fill(image.Rect(int(x), int(y), int(x)+int(w), int(y)+int(h)), RGB565(c))
	return nil
}

// Clear paints the whole panel.
func (d *Display) Clear(c color.RGBA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fill(d.bounds(), RGB565(c))
}

func (d *Display) fill(r image.Rectangle, v uint16) {
	r = r.Intersect(d.bounds())
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := d.fb[y*d.cfg.Width:]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = v
		}
	}
	d.dirty = d.dirty.Union(r)
}

// Pixel returns the RGB565 value at x, y.
func (d *Display) Pixel(x, y int) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fb[y*d.cfg.Width+x]
}

// Dirty returns the area the next Display call will send, after alignment.
func (d *Display) Dirty() image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushArea()
}

func (d *Display) flushArea() image.Rectangle {
	r := d.dirty
	if r.Empty() || !d.cfg.EvenAlign {
		return r
	}
	r.Min.X &^= 1
	r.Min.Y &^= 1
	r.Max.X = mathx.Clamp((r.Max.X+1)&^1, 0, d.cfg.Width)
	r.Max.Y = mathx.Clamp((r.Max.Y+1)&^1, 0, d.cfg.Height)
	return r
}

// Display sends the dirty area to the panel in bands of BufferLines rows.
// The dirty area is kept if a band fails so the next call retries it.
func (d *Display) Display() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.flushArea()
	if r.Empty() {
		return nil
	}
	w := r.Dx()
	for y0 := r.Min.Y; y0 < r.Max.Y; y0 += d.cfg.BufferLines {
		y1 := min(y0+d.cfg.BufferLines, r.Max.Y)
		n := 0
		for y := y0; y < y1; y++ {
			for _, v := range d.fb[y*d.cfg.Width+r.Min.X : y*d.cfg.Width+r.Max.X] {
				if d.cfg.SwapBytes {
					d.band[n], d.band[n+1] = byte(v>>8), byte(v)
				} else {
					d.band[n], d.band[n+1] = byte(v), byte(v>>8)
				}
				n += 2
			}
		}
		if err := d.panel.DrawBitmap(r.Min.X, y0, r.Min.X+w, y1, d.band[:n]); err != nil {
			return errcode.Wrap(errcode.ResourceError, "display.flush", err)
		}
	}
	d.dirty = image.Rectangle{}
	return nil
}

// On switches the panel output.
func (d *Display) On(on bool) error { return d.panel.DisplayOn(on) }

// Input is a touch device bound to a display.
type Input struct {
	d *Display
	p touch.Pointer
}

func (in *Input) Display() *Display { return in.d }

// Read returns the current point clamped to the display; Z is zero when
// nothing touches the panel.
func (in *Input) Read() touch.Point {
	p := in.p.ReadTouchPoint()
	if p.Z <= 0 {
		return touch.Point{}
	}
	p.X = mathx.Clamp(p.X, 0, in.d.cfg.Width-1)
	p.Y = mathx.Clamp(p.Y, 0, in.d.cfg.Height-1)
	return p
}

// Compositor keeps track of registered displays and inputs.
type Compositor struct {
	mu       sync.Mutex
	displays []*Display
	inputs   []*Input
}

func NewCompositor() *Compositor { return &Compositor{} }

// AddDisplay registers a panel. The configuration must describe a
// non-empty panel and a band no taller than it.
func (c *Compositor) AddDisplay(p Panel, cfg Config) (*Display, error) {
	const op = "display.add"
	switch {
	case p == nil:
		return nil, errcode.New(errcode.InvalidArgument, op, "nil panel")
	case cfg.Width <= 0 || cfg.Height <= 0:
		return nil, errcode.New(errcode.InvalidArgument, op, "empty panel")
	case cfg.BufferLines <= 0 || cfg.BufferLines > cfg.Height:
		return nil, errcode.New(errcode.InvalidArgument, op, "bad buffer lines")
	}
	d := newDisplay(p, cfg)
	c.mu.Lock()
	c.displays = append(c.displays, d)
	c.mu.Unlock()
	return d, nil
}

// AddTouch binds pointer to a display registered on c.
func (c *Compositor) AddTouch(d *Display, pointer touch.Pointer) (*Input, error) {
	const op = "display.add_touch"
	if pointer == nil {
		return nil, errcode.New(errcode.InvalidArgument, op, "nil pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	for _, x := range c.displays {
		if x == d {
			found = true
			break
		}
	}
	if !found {
		return nil, errcode.New(errcode.InvalidArgument, op, "display not registered")
	}
	in := &Input{d: d, p: pointer}
	c.inputs = append(c.inputs, in)
	return in, nil
}

// RemoveTouch unregisters in.
func (c *Compositor) RemoveTouch(in *Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.inputs {
		if x == in {
			c.inputs = append(c.inputs[:i], c.inputs[i+1:]...)
			return
		}
	}
}

func (c *Compositor) Displays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.displays)
}

func (c *Compositor) Inputs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inputs)
}
