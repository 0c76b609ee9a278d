// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nhd0216k3z

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
)

const packageName = "nhd0216k3z"

// DefaultI2CAddress is the factory I²C address of the module in the 7-bit
// form used by periph.io. The datasheet lists it in 8-bit form as 0x50.
const DefaultI2CAddress uint16 = 0x28

// Model identifies a display module speaking this command set.
type Model string

const (
	// NHD0216K3Z is the 2x16 module this package is named after.
	NHD0216K3Z Model = "NHD-0216K3Z"
	// NHD0220D3Z is the 2x20 variant.
	NHD0220D3Z Model = "NHD-0220D3Z"
	// NHD0420D3Z is the 4x20 variant.
	NHD0420D3Z Model = "NHD-0420D3Z"
)

func (m Model) dims() (rows, cols int) {
	switch m {
	case NHD0216K3Z:
		return 2, 16
	case NHD0220D3Z:
		return 2, 20
	case NHD0420D3Z:
		return 4, 20
	}
	return 0, 0
}

// rowBases holds the DDRAM base address of each display line.
var rowBases = [4]byte{0x00, 0x40, 0x14, 0x54}

// Baud selects one of the RS232 rates the module supports. The value is the
// rate index sent on the wire.
type Baud byte

const (
	Baud300 Baud = iota + 1
	Baud1200
	Baud2400
	Baud9600
	Baud14400
	Baud19200
	Baud57600
	Baud115200
)

// Opts holds the device configuration.
type Opts struct {
	// Model selects the display geometry. An empty Model means NHD0216K3Z.
	Model Model
}

// DefaultOpts is the configuration of an unmodified NHD-0216K3Z.
var DefaultOpts = Opts{Model: NHD0216K3Z}

var (
	// ErrInvalidPosition is returned when a cursor position is off screen.
	ErrInvalidPosition = errors.New("invalid cursor position")
	// ErrInvalidSetting is returned when a setting is outside the range the
	// device accepts.
	ErrInvalidSetting = errors.New("invalid setting")
	// ErrUnsupportedChar is returned when a rune has no code in the display's
	// character ROM.
	ErrUnsupportedChar = errors.New("unsupported character")
	// ErrUnsupportedModel is returned for a Model this package doesn't know.
	ErrUnsupportedModel = errors.New("unsupported display model")
)

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if strings.HasPrefix(err.Error(), packageName) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

const (
	// The controller accepts at most 32 bytes per I²C transaction.
	writeLimit = 32
	// Settling time per data byte.
	byteDelay = 100 * time.Microsecond
)

// Dev is a handle to a display module. The device keeps its own cursor,
// display and backlight state; the handle only holds the transport.
type Dev struct {
	model Model
	rows  int
	cols  int

	mu sync.Mutex
	c  conn.Conn
	w  io.Writer
	// bus and addr are kept so ChangeAddress can rebind the I²C handle.
	bus  i2c.Bus
	addr uint16
}

func newDev(opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	model := opts.Model
	if model == "" {
		model = NHD0216K3Z
	}
	rows, cols := model.dims()
	if rows == 0 {
		return nil, wrap(fmt.Errorf("%w %q", ErrUnsupportedModel, string(model)))
	}
	return &Dev{model: model, rows: rows, cols: cols}, nil
}

// NewI2C returns a Dev that talks to the display on the given bus. addr is
// the 7-bit device address, DefaultI2CAddress on an unmodified module.
//
// The bus is caller-owned; the driver never closes it.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if addr > 0x7F {
		return nil, wrap(fmt.Errorf("%w: address %#x", ErrInvalidSetting, addr))
	}
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	d.c = &i2c.Dev{Bus: b, Addr: addr}
	d.bus = b
	d.addr = addr
	return d, nil
}

// NewConn returns a Dev over an already bound connection, for example an
// spi.Conn for modules strapped for SPI.
func NewConn(c conn.Conn, opts *Opts) (*Dev, error) {
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	d.c = c
	return d, nil
}

// NewSerial returns a Dev over an io.Writer, for modules strapped for
// RS232/TTL behind a UART library, or for the virtual displays in the
// lcdsim, lcdterm and lcdsink packages.
func NewSerial(w io.Writer, opts *Opts) (*Dev, error) {
	d, err := newDev(opts)
	if err != nil {
		return nil, err
	}
	d.w = w
	return d, nil
}

// Model returns the configured display model.
func (d *Dev) Model() Model {
	return d.model
}

// write sends raw bytes on the transport. Callers hold d.mu. Writes on a
// connection are chunked to the controller's transaction limit and paced so
// each byte has time to commit.
func (d *Dev) write(p []byte) (n int, err error) {
	if d.w != nil {
		n, err = d.w.Write(p)
		err = wrap(err)
		return
	}
	for n < len(p) {
		chunk := len(p) - n
		if chunk > writeLimit {
			chunk = writeLimit
		}
		if err = d.c.Tx(p[n:n+chunk], nil); err != nil {
			err = wrap(err)
			return
		}
		n += chunk
		time.Sleep(time.Duration(chunk) * byteDelay)
	}
	return
}

// Write sends raw device codes to be shown at the cursor. No character
// translation is applied; use it for ROM glyphs that have no rune mapping.
func (d *Dev) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(p)
}

// WriteString shows text at the cursor. Runes are translated through the
// character ROM table; '\x00' through '\x07' select the loaded custom
// characters. A rune without a device code fails with ErrUnsupportedChar
// before anything is sent.
func (d *Dev) WriteString(text string) (int, error) {
	buf := make([]byte, 0, len(text))
	for _, r := range text {
		code, err := charCode(r)
		if err != nil {
			return 0, wrap(err)
		}
		buf = append(buf, code)
	}
	return d.Write(buf)
}

// Display turns the display on or off. DDRAM content is kept while off.
func (d *Dev) Display(on bool) error {
	if on {
		return d.sendCommand(cmdDisplayOn)
	}
	return d.sendCommand(cmdDisplayOff)
}

// MoveTo sets the cursor to the 1-based row and column.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows || col < d.MinCol() || col > d.cols {
		return wrap(fmt.Errorf("%w (%d, %d)", ErrInvalidPosition, row, col))
	}
	return d.sendCommand(cmdSetCursor, rowBases[row-1]+byte(col-1))
}

// Home moves the cursor to (1, 1) and undoes any display shift.
func (d *Dev) Home() error {
	return d.sendCommand(cmdCursorHome)
}

// Clear blanks the display and homes the cursor.
func (d *Dev) Clear() error {
	return d.sendCommand(cmdClearScreen)
}

// Cursor sets the cursor style. CursorOff disables both the underline and
// the blinking block; CursorBlock enables both.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	for _, mode := range modes {
		var cmds []command
		switch mode {
		case display.CursorOff:
			cmds = []command{cmdUnderlineOff, cmdBlinkOff}
		case display.CursorUnderline:
			cmds = []command{cmdUnderlineOn}
		case display.CursorBlink:
			cmds = []command{cmdBlinkOn}
		case display.CursorBlock:
			cmds = []command{cmdUnderlineOn, cmdBlinkOn}
		default:
			return wrap(display.ErrInvalidCommand)
		}
		for _, c := range cmds {
			if err := d.sendCommand(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Move moves the cursor one cell. The device only moves along the line;
// Up and Down are not supported.
func (d *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		return d.sendCommand(cmdCursorLeft)
	case display.Forward:
		return d.sendCommand(cmdCursorRight)
	}
	return wrap(display.ErrNotImplemented)
}

// MoveCursor moves the cursor cells positions forward or backward. Zero or
// negative counts do nothing.
func (d *Dev) MoveCursor(dir display.CursorDirection, cells int) error {
	var c command
	switch dir {
	case display.Backward:
		c = cmdCursorLeft
	case display.Forward:
		c = cmdCursorRight
	default:
		return wrap(display.ErrNotImplemented)
	}
	for i := 0; i < cells; i++ {
		if err := d.sendCommand(c); err != nil {
			return err
		}
	}
	return nil
}

// Backspace deletes the character before the cursor and moves the cursor
// back one cell.
func (d *Dev) Backspace() error {
	return d.sendCommand(cmdBackspace)
}

// ShiftLeft shifts the visible window of the display left cells times. The
// content wraps around the controller's 40 column line buffer.
func (d *Dev) ShiftLeft(cells int) error {
	for i := 0; i < cells; i++ {
		if err := d.sendCommand(cmdShiftLeft); err != nil {
			return err
		}
	}
	return nil
}

// ShiftRight shifts the visible window of the display right cells times.
func (d *Dev) ShiftRight(cells int) error {
	for i := 0; i < cells; i++ {
		if err := d.sendCommand(cmdShiftRight); err != nil {
			return err
		}
	}
	return nil
}

// SetContrast sets the display contrast, 1 to 50. The module default is 40.
func (d *Dev) SetContrast(level int) error {
	if level < 1 || level > 50 {
		return wrap(fmt.Errorf("%w: contrast %d", ErrInvalidSetting, level))
	}
	return d.sendCommand(cmdSetContrast, byte(level))
}

// SetBrightness sets the backlight brightness, 1 (dimmest) to 8 (brightest).
// The module default is 8.
func (d *Dev) SetBrightness(level int) error {
	if level < 1 || level > 8 {
		return wrap(fmt.Errorf("%w: brightness %d", ErrInvalidSetting, level))
	}
	return d.sendCommand(cmdSetBrightness, byte(level))
}

// Contrast scales the 0..255 interface range onto the device's 1..50.
func (d *Dev) Contrast(contrast display.Contrast) error {
	return d.SetContrast(1 + int(contrast)*49/255)
}

// Backlight scales the 0..255 interface range onto the device's 1..8. The
// panel has no backlight-off command; 0 selects the dimmest level.
func (d *Dev) Backlight(intensity display.Intensity) error {
	return d.SetBrightness(1 + int(intensity)*7/255)
}

// LoadCustomChar stores a 5x8 bitmap in one of the eight custom character
// slots. Each glyph row is a 5-bit value, row 0 on top, bit 0 rightmost.
// The glyph is shown by writing '\x00' + slot.
func (d *Dev) LoadCustomChar(slot int, glyph [8]byte) error {
	if slot < 0 || slot > 7 {
		return wrap(fmt.Errorf("%w: custom character slot %d", ErrInvalidSetting, slot))
	}
	for i, row := range glyph {
		if row > 0x1F {
			return wrap(fmt.Errorf("%w: glyph row %d value %#x", ErrInvalidSetting, i, row))
		}
	}
	params := make([]byte, 0, 9)
	params = append(params, byte(slot))
	params = append(params, glyph[:]...)
	return d.sendCommand(cmdLoadCustomChar, params...)
}

// ShowCustomChars writes the eight custom character slots on line 1 and
// their slot numbers beneath them on line 2.
func (d *Dev) ShowCustomChars() error {
	if _, err := d.WriteLine(1, "\x00\x01\x02\x03\x04\x05\x06\x07", false); err != nil {
		return err
	}
	_, err := d.WriteLine(2, "01234567", false)
	return err
}

// ChangeBaud reprograms the RS232 rate of the module. The setting persists
// across power cycles.
func (d *Dev) ChangeBaud(rate Baud) error {
	if rate < Baud300 || rate > Baud115200 {
		return wrap(fmt.Errorf("%w: baud index %d", ErrInvalidSetting, rate))
	}
	return d.sendCommand(cmdSetBaud, byte(rate))
}

// ChangeAddress reprograms the I²C address of the module and, when the
// device was opened with NewI2C, rebinds the handle to the new address.
// addr is the 7-bit form; the wire carries the datasheet's 8-bit form. The
// setting persists across power cycles.
func (d *Dev) ChangeAddress(addr uint16) error {
	if addr > 0x7F {
		return wrap(fmt.Errorf("%w: address %#x", ErrInvalidSetting, addr))
	}
	if err := d.sendCommand(cmdSetI2CAddress, byte(addr<<1)); err != nil {
		return err
	}
	d.mu.Lock()
	if d.bus != nil {
		d.c = &i2c.Dev{Bus: d.bus, Addr: addr}
		d.addr = addr
	}
	d.mu.Unlock()
	return nil
}

// ShowFirmwareVersion makes the module print its firmware version on its
// own glass. The device is write-only; nothing is read back.
func (d *Dev) ShowFirmwareVersion() error {
	return d.sendCommand(cmdShowFirmware)
}

// ShowBaud makes the module print its RS232 rate on its own glass.
func (d *Dev) ShowBaud() error {
	return d.sendCommand(cmdShowBaud)
}

// ShowAddress makes the module print its I²C address on its own glass, in
// the datasheet's 8-bit form.
func (d *Dev) ShowAddress() error {
	return d.sendCommand(cmdShowAddress)
}

// ClearLine blanks one line and leaves the cursor at its start.
func (d *Dev) ClearLine(line int) error {
	if line < 1 || line > d.rows {
		return wrap(fmt.Errorf("%w: line %d", ErrInvalidPosition, line))
	}
	if err := d.MoveTo(line, 1); err != nil {
		return err
	}
	if _, err := d.Write(spaces(d.cols)); err != nil {
		return err
	}
	return d.MoveTo(line, 1)
}

func spaces(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return b
}

// WriteLine clears a line and writes text on it, optionally centered. It
// reports whether the text fit on the line; text that does not fit runs
// into the invisible part of the line buffer.
func (d *Dev) WriteLine(line int, text string, centered bool) (bool, error) {
	if err := d.ClearLine(line); err != nil {
		return false, err
	}
	length := utf8.RuneCountInString(text)
	start := 1
	if centered {
		if pad := (d.cols - length) / 2; pad > 0 {
			start = 1 + pad
		}
	}
	if start > 1 {
		if err := d.MoveTo(line, start); err != nil {
			return false, err
		}
	}
	if _, err := d.WriteString(text); err != nil {
		return false, err
	}
	return length <= d.cols, nil
}

// WriteMessage clears the display and writes a message from the top left,
// overflowing onto the following lines. With preserveWords, lines break at
// spaces instead of mid-word. It reports whether the whole message is
// visible.
func (d *Dev) WriteMessage(msg string, preserveWords bool) (bool, error) {
	if err := d.Clear(); err != nil {
		return false, err
	}
	if err := d.Home(); err != nil {
		return false, err
	}
	if preserveWords {
		return d.writeWords(msg)
	}
	runes := []rune(msg)
	fits := len(runes) <= d.rows*d.cols
	row := 1
	for start := 0; start < len(runes) && row <= d.rows; start += d.cols {
		end := start + d.cols
		if end > len(runes) {
			end = len(runes)
		}
		if row > 1 {
			if err := d.MoveTo(row, 1); err != nil {
				return false, err
			}
		}
		if _, err := d.WriteString(string(runes[start:end])); err != nil {
			return false, err
		}
		row++
	}
	return fits, nil
}

func (d *Dev) writeWords(msg string) (bool, error) {
	fits := true
	row, col := 1, 1
	for _, word := range strings.Fields(msg) {
		length := utf8.RuneCountInString(word)
		needed := length
		if col > 1 {
			needed++
		}
		if col > 1 && col+needed-1 > d.cols {
			row++
			if row > d.rows {
				return false, nil
			}
			if err := d.MoveTo(row, 1); err != nil {
				return false, err
			}
			col = 1
		} else if col > 1 {
			if _, err := d.WriteString(" "); err != nil {
				return false, err
			}
			col++
		}
		if _, err := d.WriteString(word); err != nil {
			return false, err
		}
		col += length
		if col-1 > d.cols {
			fits = false
		}
	}
	return fits, nil
}

// AutoScroll is not supported by the device.
func (d *Dev) AutoScroll(enabled bool) error {
	return wrap(display.ErrNotImplemented)
}

// Cols returns the number of columns on the display.
func (d *Dev) Cols() int {
	return d.cols
}

// Rows returns the number of lines on the display.
func (d *Dev) Rows() int {
	return d.rows
}

// MinCol returns the first column number; positions are 1-based.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns the first line number; positions are 1-based.
func (d *Dev) MinRow() int {
	return 1
}

func (d *Dev) String() string {
	if d.c != nil {
		return fmt.Sprintf("%s %dx%d on %s", d.model, d.cols, d.rows, d.c)
	}
	return fmt.Sprintf("%s %dx%d on %T", d.model, d.cols, d.rows, d.w)
}

// Halt clears and turns off the display. If the device was opened over an
// io.Writer that implements io.Closer, it is closed.
func (d *Dev) Halt() error {
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.Display(false); err != nil {
		return err
	}
	if d.w != nil {
		if cl, ok := d.w.(io.Closer); ok {
			return wrap(cl.Close())
		}
	}
	return nil
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayContrast = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
