// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsink

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"github.com/GermanBionicSystems/nhd0216k3z/lcdsim"
)

type pngEncoderBufferPool sync.Pool

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

var pngEncoder = png.Encoder{
	CompressionLevel: png.BestSpeed,
	BufferPool:       new(pngEncoderBufferPool),
}

var jpegOptions = jpeg.Options{Quality: 90}

// Character cells are 5x8 dots with a one dot gap between cells and a two
// dot margin around the glass.
const (
	cellW = 6
	cellH = 9
)

func (d *Display) width() int {
	return (cellW*d.screen.Cols() + 3) * d.scale
}

func (d *Display) height() int {
	return (cellH*d.screen.Rows() + 3) * d.scale
}

// Bounds returns the size of the rendered image in pixels.
func (d *Display) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.width(), d.height())
}

// renderLocked draws the current module state. The yellow-green glass tracks
// the backlight level and the segment ink tracks the contrast setting.
func (d *Display) renderLocked() image.Image {
	s := float64(d.scale)
	rows := d.screen.Rows()
	cols := d.screen.Cols()
	on := d.screen.On()
	under := d.screen.Underline()
	blink := d.screen.Blink()
	crow, ccol := d.screen.CursorPos()
	raw := d.screen.Raw()

	dc := gg.NewContext(d.width(), d.height())

	lum := 0.30 + 0.70*float64(d.screen.Brightness()-1)/7
	dc.SetRGB(0.62*lum, 0.82*lum, 0.22*lum)
	dc.Clear()

	if !on {
		return dc.Image()
	}

	alpha := 0.20 + 0.80*float64(d.screen.Contrast())/50
	dc.SetFontFace(d.face)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := (2 + float64(c)*cellW) * s
			y := (2 + float64(r)*cellH) * s
			code := raw[r][c]

			dc.SetRGBA(0.05, 0.09, 0.16, alpha)
			if code < 8 {
				g := d.screen.Glyph(int(code))
				for gy := 0; gy < 8; gy++ {
					for gx := 0; gx < 5; gx++ {
						if g[gy]&(1<<uint(4-gx)) != 0 {
							dc.DrawRectangle(x+float64(gx)*s, y+float64(gy)*s, s, s)
						}
					}
				}
				dc.Fill()
			} else if rn := lcdsim.RuneFor(code); rn != ' ' {
				dc.DrawStringAnchored(string(rn), x+2.5*s, y+3.5*s, 0.5, 0.5)
			}

			if crow == r+1 && ccol == c+1 {
				if under {
					dc.DrawRectangle(x, y+7*s, 5*s, s)
					dc.Fill()
				}
				if blink {
					dc.SetRGBA(0.05, 0.09, 0.16, 0.45*alpha)
					dc.DrawRectangle(x, y, 5*s, 8*s)
					dc.Fill()
				}
			}
		}
	}

	return dc.Image()
}

func (d *Display) encodeLocked(format ImageFormat) ([]byte, error) {
	img := d.renderLocked()

	buf := bytes.NewBuffer(bufferPool.Get().([]byte)[:0])

	switch format {
	case PNG:
		if err := pngEncoder.Encode(buf, img); err != nil {
			return nil, err
		}

	case JPEG:
		if err := jpeg.Encode(buf, img, &jpegOptions); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unhandled image format %s", format)
	}

	return buf.Bytes(), nil
}
