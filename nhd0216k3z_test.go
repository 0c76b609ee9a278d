// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nhd0216k3z

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestCommandSequence(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{0xfe, 0x41}},
			{Addr: 0x28, W: []byte{0xfe, 0x42}},
			{Addr: 0x28, W: []byte{0xfe, 0x51}},
			{Addr: 0x28, W: []byte{0xfe, 0x46}},
			{Addr: 0x28, W: []byte{0xfe, 0x45, 0x42}},
			{Addr: 0x28, W: []byte{0xfe, 0x47}},
			{Addr: 0x28, W: []byte{0xfe, 0x4b}},
			{Addr: 0x28, W: []byte{0xfe, 0x48}},
			{Addr: 0x28, W: []byte{0xfe, 0x4c}},
			{Addr: 0x28, W: []byte{0xfe, 0x49}},
			{Addr: 0x28, W: []byte{0xfe, 0x4a}},
			{Addr: 0x28, W: []byte{0xfe, 0x4e}},
			{Addr: 0x28, W: []byte{0xfe, 0x52, 40}},
			{Addr: 0x28, W: []byte{0xfe, 0x53, 4}},
			{Addr: 0x28, W: []byte{0xfe, 0x55}},
			{Addr: 0x28, W: []byte{0xfe, 0x55}},
			{Addr: 0x28, W: []byte{0xfe, 0x56}},
			{Addr: 0x28, W: []byte{0xfe, 0x61, 4}},
			{Addr: 0x28, W: []byte{0xfe, 0x70}},
			{Addr: 0x28, W: []byte{0xfe, 0x71}},
			{Addr: 0x28, W: []byte{0xfe, 0x72}},
			{Addr: 0x28, W: []byte{0xfe, 0x54, 2, 0x0e, 0x11, 0x11, 0x1f, 0x11, 0x11, 0x11, 0x00}},
			{Addr: 0x28, W: []byte{'H', 'i'}},
		},
		DontPanic: true,
	}

	d, err := NewI2C(pb, DefaultI2CAddress, nil)
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name string
		f    func() error
	}{
		{"display on", func() error { return d.Display(true) }},
		{"display off", func() error { return d.Display(false) }},
		{"clear", d.Clear},
		{"home", d.Home},
		{"move to", func() error { return d.MoveTo(2, 3) }},
		{"cursor block", func() error { return d.Cursor(display.CursorBlock) }},
		{"cursor off", func() error { return d.Cursor(display.CursorOff) }},
		{"move backward", func() error { return d.Move(display.Backward) }},
		{"move forward", func() error { return d.Move(display.Forward) }},
		{"backspace", d.Backspace},
		{"contrast", func() error { return d.SetContrast(40) }},
		{"brightness", func() error { return d.SetBrightness(4) }},
		{"shift left", func() error { return d.ShiftLeft(2) }},
		{"shift right", func() error { return d.ShiftRight(1) }},
		{"baud", func() error { return d.ChangeBaud(Baud9600) }},
		{"show firmware", d.ShowFirmwareVersion},
		{"show baud", d.ShowBaud},
		{"show address", d.ShowAddress},
		{"custom char", func() error {
			return d.LoadCustomChar(2, [8]byte{0x0e, 0x11, 0x11, 0x1f, 0x11, 0x11, 0x11, 0x00})
		}},
		{"write", func() error {
			_, err := d.WriteString("Hi")
			return err
		}},
	}
	for _, s := range steps {
		if err := s.f(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}

	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWrite_Chunked(t *testing.T) {
	long := bytes.Repeat([]byte{'A'}, 40)
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: long[:32]},
			{Addr: 0x28, W: long[32:]},
		},
		DontPanic: true,
	}

	d, err := NewI2C(pb, DefaultI2CAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := d.Write(long)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(long) {
		t.Fatalf("Write() = %d, want %d", n, len(long))
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestChangeAddress_Rebinds(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x28, W: []byte{0xfe, 0x62, 0x60}},
			{Addr: 0x30, W: []byte{0xfe, 0x51}},
		},
		DontPanic: true,
	}

	d, err := NewI2C(pb, DefaultI2CAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ChangeAddress(0x30); err != nil {
		t.Fatal(err)
	}
	// The next transaction must go to the new address.
	if err := d.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := pb.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewI2C_AddressRange(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	if _, err := NewI2C(pb, 0x80, nil); !errors.Is(err, ErrInvalidSetting) {
		t.Fatalf("NewI2C(0x80) = %v, want ErrInvalidSetting", err)
	}
}

func TestNew_UnknownModel(t *testing.T) {
	_, err := NewSerial(&bytes.Buffer{}, &Opts{Model: "NHD-9999"})
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Fatalf("NewSerial() = %v, want ErrUnsupportedModel", err)
	}
}

func TestModels(t *testing.T) {
	for _, tc := range []struct {
		model Model
		rows  int
		cols  int
	}{
		{NHD0216K3Z, 2, 16},
		{NHD0220D3Z, 2, 20},
		{NHD0420D3Z, 4, 20},
	} {
		d, err := NewSerial(&bytes.Buffer{}, &Opts{Model: tc.model})
		if err != nil {
			t.Fatalf("%s: %v", tc.model, err)
		}
		if d.Model() != tc.model || d.Rows() != tc.rows || d.Cols() != tc.cols {
			t.Errorf("%s: got %s %dx%d", tc.model, d.Model(), d.Cols(), d.Rows())
		}
		if d.MinRow() != 1 || d.MinCol() != 1 {
			t.Errorf("%s: positions must be 1-based", tc.model)
		}
	}
}

func TestMoveTo_FourRows(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, &Opts{Model: NHD0420D3Z})
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		row, col int
		pos      byte
	}{
		{1, 1, 0x00},
		{2, 1, 0x40},
		{3, 1, 0x14},
		{4, 1, 0x54},
		{4, 20, 0x67},
	} {
		b.Reset()
		if err := d.MoveTo(tc.row, tc.col); err != nil {
			t.Fatalf("MoveTo(%d, %d): %v", tc.row, tc.col, err)
		}
		if want := []byte{0xfe, 0x45, tc.pos}; !bytes.Equal(b.Bytes(), want) {
			t.Errorf("MoveTo(%d, %d) sent %#v, want %#v", tc.row, tc.col, b.Bytes(), want)
		}
	}
}

func TestMoveTo_OffScreen(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range [][2]int{{0, 1}, {1, 0}, {3, 1}, {1, 17}, {-1, -1}} {
		if err := d.MoveTo(tc[0], tc[1]); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("MoveTo(%d, %d) = %v, want ErrInvalidPosition", tc[0], tc[1], err)
		}
	}
	if b.Len() != 0 {
		t.Errorf("rejected moves sent %#v", b.Bytes())
	}
}

func TestSettings_Range(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name string
		f    func() error
	}{
		{"contrast 0", func() error { return d.SetContrast(0) }},
		{"contrast 51", func() error { return d.SetContrast(51) }},
		{"brightness 0", func() error { return d.SetBrightness(0) }},
		{"brightness 9", func() error { return d.SetBrightness(9) }},
		{"baud 0", func() error { return d.ChangeBaud(0) }},
		{"baud 9", func() error { return d.ChangeBaud(9) }},
		{"address 0x80", func() error { return d.ChangeAddress(0x80) }},
		{"slot 8", func() error { return d.LoadCustomChar(8, [8]byte{}) }},
		{"slot -1", func() error { return d.LoadCustomChar(-1, [8]byte{}) }},
		{"glyph row", func() error { return d.LoadCustomChar(0, [8]byte{0x20}) }},
	} {
		if err := tc.f(); !errors.Is(err, ErrInvalidSetting) {
			t.Errorf("%s: got %v, want ErrInvalidSetting", tc.name, err)
		}
	}
	if b.Len() != 0 {
		t.Errorf("rejected settings sent %#v", b.Bytes())
	}
}

func TestScaling(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name string
		f    func() error
		want []byte
	}{
		{"contrast max", func() error { return d.Contrast(255) }, []byte{0xfe, 0x52, 50}},
		{"contrast min", func() error { return d.Contrast(0) }, []byte{0xfe, 0x52, 1}},
		{"backlight max", func() error { return d.Backlight(255) }, []byte{0xfe, 0x53, 8}},
		{"backlight min", func() error { return d.Backlight(0) }, []byte{0xfe, 0x53, 1}},
	} {
		b.Reset()
		if err := tc.f(); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !bytes.Equal(b.Bytes(), tc.want) {
			t.Errorf("%s sent %#v, want %#v", tc.name, b.Bytes(), tc.want)
		}
	}
}

func TestCharCode(t *testing.T) {
	for _, tc := range []struct {
		r    rune
		code byte
	}{
		{' ', 0x20},
		{'}', 0x7d},
		{'\x00', 0x00},
		{'\x07', 0x07},
		{'¥', 0x5c},
		{'→', 0x7e},
		{'←', 0x7f},
		{'°', 0xdf},
		{'ä', 0xe1},
		{'μ', 0xe4},
		{'Ω', 0xf4},
		{'π', 0xf7},
		{'÷', 0xfd},
		{'■', 0xff},
	} {
		code, err := charCode(tc.r)
		if err != nil {
			t.Errorf("charCode(%q): %v", tc.r, err)
		} else if code != tc.code {
			t.Errorf("charCode(%q) = %#x, want %#x", tc.r, code, tc.code)
		}
	}
	for _, r := range []rune{'\\', '~', '\x7f', 'é', '\x08', '漢'} {
		if _, err := charCode(r); !errors.Is(err, ErrUnsupportedChar) {
			t.Errorf("charCode(%q) = %v, want ErrUnsupportedChar", r, err)
		}
	}
}

func TestWriteString(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := d.WriteString("25°C →")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{'2', '5', 0xdf, 'C', ' ', 0x7e}
	if n != len(want) {
		t.Errorf("WriteString() = %d, want %d", n, len(want))
	}
	if !bytes.Equal(b.Bytes(), want) {
		t.Errorf("sent %#v, want %#v", b.Bytes(), want)
	}
}

func TestWriteString_Unsupported(t *testing.T) {
	b := &bytes.Buffer{}
	d, err := NewSerial(b, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := d.WriteString("caffè")
	if !errors.Is(err, ErrUnsupportedChar) {
		t.Fatalf("WriteString() = %v, want ErrUnsupportedChar", err)
	}
	if n != 0 || b.Len() != 0 {
		// Nothing may reach the display when any rune is untranslatable.
		t.Errorf("partial write: n=%d, sent %#v", n, b.Bytes())
	}
}

func TestString(t *testing.T) {
	d, err := NewSerial(&bytes.Buffer{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); !strings.HasPrefix(got, "NHD-0216K3Z 16x2 on ") {
		t.Errorf("String() = %q", got)
	}
}

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closableBuffer) Close() error {
	c.closed = true
	return nil
}

func TestHalt(t *testing.T) {
	w := &closableBuffer{}
	d, err := NewSerial(w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	want := []byte{0xfe, 0x51, 0xfe, 0x42}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Halt() sent %#v, want %#v", w.Bytes(), want)
	}
	if !w.closed {
		t.Error("Halt() did not close the underlying writer")
	}
}
