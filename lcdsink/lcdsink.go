// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsink renders an emulated character LCD module and serves the
// picture over HTTP.
//
// Display implements an HTTP request handler. Client requests get an initial
// snapshot of the rendered module and are updated further on every change.
//
// The primary use case is the development of LCD user interfaces on a host
// machine: point a Dev from the parent package at a Display with NewSerial
// and watch the module in a browser. Devices with network connectivity can
// also use it to mirror their local display via a web interface.
//
// The protocol used is "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG)
// which is often used by IP cameras. Because of its better suitability for
// computer-drawn graphics the PNG image format is used by default. JPEG as a
// format can be selected via Options.Format or using the "format" URL
// parameter.
package lcdsink

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/GermanBionicSystems/nhd0216k3z/lcdsim"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3"
)

// Options for lcdsink devices.
type Options struct {
	// Rows and Cols select the emulated module geometry; zero values mean
	// 2x16.
	Rows, Cols int

	// Format specifies the image format to send to clients.
	Format ImageFormat

	// Scale is the rendered size of one LCD dot in pixels. Zero means 4.
	Scale int
}

type Display struct {
	defaultFormat ImageFormat
	scale         int
	face          font.Face

	mu       sync.Mutex
	screen   *lcdsim.Screen
	clients  map[*client]struct{}
	snapshot map[imageConfig][]byte
}

var _ io.Writer = (*Display)(nil)
var _ http.Handler = (*Display)(nil)
var _ conn.Resource = (*Display)(nil)

// New creates a new lcdsink device instance.
func New(opt *Options) *Display {
	var o Options
	if opt != nil {
		o = *opt
	}
	scale := o.Scale
	if scale <= 0 {
		scale = 4
	}

	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("parsing embedded font failed: %v", err))
	}

	return &Display{
		defaultFormat: o.Format,
		scale:         scale,
		face:          truetype.NewFace(f, &truetype.Options{Size: 7 * float64(scale)}),
		screen:        lcdsim.New(&lcdsim.Options{Rows: o.Rows, Cols: o.Cols}),
		clients:       map[*client]struct{}{},
		snapshot:      map[imageConfig][]byte{},
	}
}

// String returns the name of the device.
func (d *Display) String() string {
	return "LCDSink"
}

// Halt implements conn.Resource and terminates all running client requests
// asynchronously.
func (d *Display) Halt() error {
	d.mu.Lock()
	d.terminateClientsLocked()
	d.mu.Unlock()

	return nil
}

// Screen returns the emulated module for inspection.
func (d *Display) Screen() *lcdsim.Screen {
	return d.screen
}

// Write accepts a stream of display protocol bytes, updates the emulated
// module and notifies streaming clients.
func (d *Display) Write(p []byte) (int, error) {
	d.mu.Lock()
	n, _ := d.screen.Write(p)
	d.bufferChangedLocked()
	d.mu.Unlock()

	return n, nil
}
