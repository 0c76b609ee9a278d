// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package nhd0216k3z controls Newhaven Display serial character LCDs over
// I²C, RS232/TTL or SPI.
//
// The driver speaks the command language shared by the NHD-0216K3Z family of
// display modules. The factory default configuration is a 2x16 display at
// I²C address 0x28 (the datasheet writes the address in 8-bit form as 0x50).
//
// The device is write-only: commands and text are sent to it and it keeps
// its own cursor, display and backlight state. The driver therefore holds no
// shadow state beyond the transport it writes to.
//
// Dev implements periph.io/x/conn/v3/display.TextDisplay along with
// DisplayContrast and DisplayBacklight. Beyond the interface it exposes the
// full command set of the module: custom character upload, display shifting,
// baud rate and I²C address changes, and the on-glass diagnostic commands.
//
// The lcdsim, lcdterm and lcdsink subpackages provide virtual displays that
// consume the same wire protocol, for development away from the hardware.
//
// # Supported Models
//
// NHD-0216K3Z (2x16): https://newhavendisplay.com/2x16-character-lcd-rgb-backlight-serial-slave-display/
//
// NHD-0220D3Z (2x20): https://newhavendisplay.com/2x20-character-lcd-yellow-green-backlight-serial-slave-display/
//
// NHD-0420D3Z (4x20): https://newhavendisplay.com/4x20-character-lcd-yellow-green-backlight-serial-slave-display/
//
// # Datasheet
//
// https://newhavendisplay.com/content/specs/NHD-0216K3Z-FL-GBW-V3.pdf
package nhd0216k3z
