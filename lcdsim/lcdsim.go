// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates the controller of Newhaven serial character LCDs.
//
// Screen is an io.Writer consuming the same byte protocol the hardware
// takes: plain bytes are character codes stored at the cursor, 0xFE starts
// a command. A Dev from the parent package pointed at a Screen through
// NewSerial behaves like one pointed at the glass.
//
// The emulation models the controller truthfully: two 40 cell DDRAM lines,
// a visible window moved by the shift commands, cursor address wrap, and
// the eight CGRAM glyph slots. On 4 line models the upper and lower halves
// of each DDRAM line feed lines 1/3 and 2/4, which is why shifting a 4x20
// display makes lines bleed into each other, exactly like the hardware.
package lcdsim

import (
	"io"
	"strings"
	"sync"
)

// ddramCells is the length of one DDRAM line in the controller.
const ddramCells = 40

const prefix byte = 0xFE

// Options configures the emulated geometry.
type Options struct {
	// Rows is the number of visible lines: 1, 2 or 4. Zero means 2.
	Rows int
	// Cols is the number of visible columns. Zero means 16. 4 line screens
	// view at most 20 columns, others at most 40.
	Cols int
}

// cgrom maps character ROM codes back to runes, the inverse of the table a
// driver encodes with. Codes 0x00..0x07 are the CGRAM glyphs and have no
// fixed rune.
var cgrom = map[byte]rune{
	0x5C: '¥',
	0x7E: '→',
	0x7F: '←',
	0xDF: '°',
	0xE0: 'α',
	0xE1: 'ä',
	0xE2: 'β',
	0xE3: 'Ɛ',
	0xE4: 'μ',
	0xE5: 'σ',
	0xE6: 'ρ',
	0xE8: '√',
	0xEC: '¢',
	0xEE: 'ñ',
	0xEF: 'ö',
	0xF2: 'θ',
	0xF3: '∞',
	0xF4: 'Ω',
	0xF6: 'Σ',
	0xF7: 'π',
	0xFD: '÷',
	0xFF: '■',
}

// CustomCharRune is the placeholder Lines() uses for the CGRAM glyph codes.
// Raw and Glyph expose the slot number and pixels.
const CustomCharRune = '▒'

// RuneFor translates a device character code to a displayable rune. Codes
// without a glyph in the ROM map come back as '?'.
func RuneFor(code byte) rune {
	if code <= 0x07 {
		return CustomCharRune
	}
	if r, ok := cgrom[code]; ok {
		return r
	}
	if code >= 0x20 && code <= 0x7D {
		return rune(code)
	}
	return '?'
}

// decode states for the command parser.
const (
	stData = iota
	stOpcode
	stParams
)

// Screen is an emulated display module.
type Screen struct {
	rows int
	cols int

	mu     sync.Mutex
	ddram  [2][ddramCells]byte
	glyphs [8][8]byte
	addr   byte
	offset int
	on     bool
	under  bool
	blink  bool

	contrast   int
	brightness int
	baud       byte
	i2cAddr    byte

	gen uint64

	state  int
	opcode byte
	params []byte
	want   int
}

// New returns a Screen in the power-on state of the hardware: display on,
// cursor hidden at (1, 1), contrast 40, brightness 8, 9600 baud, address
// 0x50 (8-bit form).
func New(opts *Options) *Screen {
	rows, cols := 2, 16
	if opts != nil {
		if opts.Rows > 0 {
			rows = opts.Rows
		}
		if opts.Cols > 0 {
			cols = opts.Cols
		}
	}
	if rows > 2 {
		rows = 4
	}
	max := ddramCells
	if rows == 4 {
		max = ddramCells / 2
	}
	if cols > max {
		cols = max
	}
	s := &Screen{
		rows:       rows,
		cols:       cols,
		on:         true,
		contrast:   40,
		brightness: 8,
		baud:       4,
		i2cAddr:    0x50,
	}
	s.blank()
	return s
}

func (s *Screen) blank() {
	for i := range s.ddram {
		for j := range s.ddram[i] {
			s.ddram[i][j] = ' '
		}
	}
}

// Write consumes protocol bytes. Commands may straddle Write calls; the
// parser keeps its position. It never fails.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range p {
		s.feed(b)
	}
	return len(p), nil
}

func (s *Screen) feed(b byte) {
	switch s.state {
	case stOpcode:
		s.opcode = b
		if n := paramCount(b); n > 0 {
			s.state = stParams
			s.want = n
			s.params = s.params[:0]
		} else {
			s.state = stData
			s.exec(b, nil)
		}
	case stParams:
		s.params = append(s.params, b)
		s.want--
		if s.want == 0 {
			s.state = stData
			s.exec(s.opcode, s.params)
		}
	default:
		if b == prefix {
			s.state = stOpcode
			return
		}
		s.putData(b)
	}
}

// paramCount returns how many parameter bytes follow an opcode. Opcodes the
// package doesn't know consume none.
func paramCount(opcode byte) int {
	switch opcode {
	case 0x45, 0x52, 0x53, 0x61, 0x62:
		return 1
	case 0x54:
		return 9
	}
	return 0
}

func (s *Screen) exec(opcode byte, params []byte) {
	switch opcode {
	case 0x41:
		s.on = true
	case 0x42:
		s.on = false
	case 0x45:
		if _, _, ok := split(params[0]); ok {
			s.addr = params[0]
		}
	case 0x46:
		s.addr = 0
		s.offset = 0
	case 0x47:
		s.under = true
	case 0x48:
		s.under = false
	case 0x49:
		s.retreat()
	case 0x4A:
		s.advance()
	case 0x4B:
		s.blink = true
	case 0x4C:
		s.blink = false
	case 0x4E:
		s.retreat()
		if row, cell, ok := split(s.addr); ok {
			s.ddram[row][cell] = ' '
		}
	case 0x51:
		s.blank()
		s.addr = 0
		s.offset = 0
	case 0x52:
		s.contrast = int(params[0])
	case 0x53:
		s.brightness = int(params[0])
	case 0x54:
		slot := params[0] & 7
		for i := 0; i < 8; i++ {
			s.glyphs[slot][i] = params[1+i] & 0x1F
		}
	case 0x55:
		s.offset = (s.offset + 1) % ddramCells
	case 0x56:
		s.offset = (s.offset + ddramCells - 1) % ddramCells
	case 0x61:
		s.baud = params[0]
	case 0x62:
		s.i2cAddr = params[0]
	}
	s.gen++
}

// split decomposes a DDRAM address into line and cell. Addresses outside
// the two line ranges are invalid.
func split(addr byte) (row, cell int, ok bool) {
	if addr < ddramCells {
		return 0, int(addr), true
	}
	if addr >= 0x40 && addr < 0x40+ddramCells {
		return 1, int(addr - 0x40), true
	}
	return 0, 0, false
}

// advance moves the cursor forward the way the controller does: the end of
// line 1 runs into line 2, the end of line 2 wraps to line 1.
func (s *Screen) advance() {
	switch {
	case s.addr == ddramCells-1:
		s.addr = 0x40
	case s.addr == 0x40+ddramCells-1:
		s.addr = 0
	default:
		s.addr++
	}
}

func (s *Screen) retreat() {
	switch {
	case s.addr == 0:
		s.addr = 0x40 + ddramCells - 1
	case s.addr == 0x40:
		s.addr = ddramCells - 1
	default:
		s.addr--
	}
}

func (s *Screen) putData(b byte) {
	if row, cell, ok := split(s.addr); ok {
		s.ddram[row][cell] = b
		s.advance()
		s.gen++
	}
}

// cell returns the DDRAM coordinates feeding visible position (r, c),
// 0-based.
func (s *Screen) cell(r, c int) (row, idx int) {
	half := (r / 2) * s.cols
	return r & 1, (s.offset + half + c) % ddramCells
}

// Rows returns the number of visible lines.
func (s *Screen) Rows() int {
	return s.rows
}

// Cols returns the number of visible columns.
func (s *Screen) Cols() int {
	return s.cols
}

// Lines renders the visible window as text, one string per line. Character
// codes are mapped back to runes; CGRAM glyphs come back as CustomCharRune.
func (s *Screen) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, s.rows)
	var b strings.Builder
	for r := 0; r < s.rows; r++ {
		b.Reset()
		for c := 0; c < s.cols; c++ {
			row, idx := s.cell(r, c)
			b.WriteRune(RuneFor(s.ddram[row][idx]))
		}
		out[r] = b.String()
	}
	return out
}

// Raw returns the character codes of the visible window.
func (s *Screen) Raw() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, s.rows)
	for r := 0; r < s.rows; r++ {
		out[r] = make([]byte, s.cols)
		for c := 0; c < s.cols; c++ {
			row, idx := s.cell(r, c)
			out[r][c] = s.ddram[row][idx]
		}
	}
	return out
}

// Glyph returns the pixel rows of a CGRAM slot, 5 bits per row.
func (s *Screen) Glyph(slot int) [8]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.glyphs[slot&7]
}

// CursorPos returns the 1-based visible position of the cursor, or (0, 0)
// when the cursor address is outside the visible window.
func (s *Screen) CursorPos() (row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	arow, acell, ok := split(s.addr)
	if !ok {
		return 0, 0
	}
	for r := 0; r < s.rows; r++ {
		if r&1 != arow {
			continue
		}
		half := (r / 2) * s.cols
		c := (acell - half - s.offset + 2*ddramCells) % ddramCells
		if c < s.cols {
			return r + 1, c + 1
		}
	}
	return 0, 0
}

// On reports whether the display is switched on.
func (s *Screen) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Underline reports whether the underline cursor is enabled.
func (s *Screen) Underline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.under
}

// Blink reports whether the blinking cursor is enabled.
func (s *Screen) Blink() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blink
}

// Contrast returns the last contrast setting, 1..50.
func (s *Screen) Contrast() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contrast
}

// Brightness returns the last backlight setting, 1..8.
func (s *Screen) Brightness() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness
}

// Baud returns the programmed RS232 rate index, 1..8.
func (s *Screen) Baud() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baud
}

// Address returns the programmed I²C address in the datasheet's 8-bit form.
func (s *Screen) Address() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.i2cAddr
}

// Generation is a counter bumped on every command and data byte. Pollers
// can use it to skip repaints.
func (s *Screen) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

var _ io.Writer = &Screen{}
