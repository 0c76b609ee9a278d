// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsink

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestRender(t *testing.T) {
	d := New(&Options{Scale: 4})

	// Load an all-on glyph into slot 0, then display it at the home
	// position.
	prog := []byte{
		0xfe, 0x54, 0x00, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f, 0x1f,
		0xfe, 0x46,
		0x00,
	}
	if _, err := d.Write(prog); err != nil {
		t.Fatal(err)
	}

	buf := d.grabSnapshot(imageConfig{format: PNG})
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.Bounds().Size(), d.Bounds().Size(); got != want {
		t.Fatalf("Got image size %v, want %v", got, want)
	}

	// The margin shows the backlit glass.
	gr, gg, gb := rgbAt(img, 0, 0)
	if !(gg > gr && gr > gb) {
		t.Errorf("Margin pixel is %d,%d,%d, want yellow-green", gr, gg, gb)
	}

	// The glyph cell starts two dots in, so pixel (10,10) is inside its
	// first dot and must be darker than the glass.
	ir, ig, _ := rgbAt(img, 10, 10)
	if !(ir < gr && ig < gg) {
		t.Errorf("Glyph pixel is %d,%d, not darker than glass %d,%d", ir, ig, gr, gg)
	}
}

func TestRender_DisplayOff(t *testing.T) {
	d := New(&Options{Scale: 2})
	if _, err := d.Write([]byte("8\xfeB")); err != nil {
		t.Fatal(err)
	}

	buf := d.grabSnapshot(imageConfig{format: PNG})
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		t.Fatal(err)
	}

	// With the display off nothing but the glass is drawn. The first cell
	// must match the margin exactly.
	gr, gg, gb := rgbAt(img, 0, 0)
	cr, cg, cb := rgbAt(img, 5, 5)
	if gr != cr || gg != cg || gb != cb {
		t.Errorf("Cell pixel %d,%d,%d differs from glass %d,%d,%d with display off",
			cr, cg, cb, gr, gg, gb)
	}
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}
