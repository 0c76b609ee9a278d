// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdterm paints an emulated character LCD on an ANSI terminal
// (stdout) using ANSI color codes.
//
// Useful while you are waiting for your display module to come by mail:
// point a Dev from the parent package at it with NewSerial and develop the
// UI against the terminal.
package lcdterm

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/GermanBionicSystems/nhd0216k3z/lcdsim"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
)

// Opts represents the options available for this display.
type Opts struct {
	// Rows and Cols select the emulated geometry; zero values mean 2x16.
	Rows, Cols int
	// Palette is the terminal palette; nil means ansi256.Default.
	Palette *ansi256.Palette
	// To is where frames are written; nil means the colorable stdout.
	To io.Writer
}

// Dev is a character LCD emulator that repaints in place on the console.
type Dev struct {
	w       io.Writer
	palette ansi256.Palette
	screen  *lcdsim.Screen

	buf   bytes.Buffer
	drawn bool
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	var o Opts
	if opts != nil {
		o = *opts
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := o.To
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{
		w:       w,
		palette: *p,
		screen:  lcdsim.New(&lcdsim.Options{Rows: o.Rows, Cols: o.Cols}),
	}
}

// Screen returns the underlying emulated module for inspection.
func (d *Dev) Screen() *lcdsim.Screen {
	return d.screen
}

func (d *Dev) String() string {
	return fmt.Sprintf("LCDTerm %dx%d", d.screen.Cols(), d.screen.Rows())
}

// Halt implements conn.Resource.
//
// It moves below the frame and resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Write accepts a stream of display protocol bytes and repaints the frame.
func (d *Dev) Write(p []byte) (int, error) {
	n, _ := d.screen.Write(p)
	return n, d.refresh()
}

func (d *Dev) refresh() error {
	rows := d.screen.Rows()
	cols := d.screen.Cols()
	lines := d.screen.Lines()
	on := d.screen.On()
	crow, ccol := d.screen.CursorPos()
	cursor := on && (d.screen.Underline() || d.screen.Blink())
	border := "+" + strings.Repeat("-", cols) + "+"

	d.buf.Reset()
	if d.drawn {
		// Move back over the previous frame.
		fmt.Fprintf(&d.buf, "\033[%dA", rows+3)
	}
	d.drawn = true
	d.buf.WriteString("\r\033[0m")
	d.buf.WriteString(border)
	d.buf.WriteByte('\n')
	for r := 0; r < rows; r++ {
		line := lines[r]
		if !on {
			line = strings.Repeat(" ", cols)
		}
		d.buf.WriteByte('|')
		if cursor && crow == r+1 {
			for i, rn := range []rune(line) {
				if i == ccol-1 {
					d.buf.WriteString("\033[7m")
					d.buf.WriteRune(rn)
					d.buf.WriteString("\033[27m")
				} else {
					d.buf.WriteRune(rn)
				}
			}
		} else {
			d.buf.WriteString(line)
		}
		d.buf.WriteString("|\n")
	}
	d.buf.WriteString(border)
	d.buf.WriteByte('\n')
	for i := 1; i <= 8; i++ {
		c := color.NRGBA{R: 0x30, G: 0x30, B: 0x30, A: 255}
		if on && i <= d.screen.Brightness() {
			c = color.NRGBA{R: 0x9A, G: 0xCD, B: 0x32, A: 255}
		}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	d.buf.WriteString("\033[0m\n")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ io.Writer = &Dev{}
var _ conn.Resource = &Dev{}
