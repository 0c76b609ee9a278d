// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nhd0216k3z

import "time"

// Every command is the 0xFE prefix followed by the opcode and its parameter
// bytes. The controller needs the documented execution time after each
// command before it accepts more traffic.
const commandPrefix byte = 0xFE

type command byte

const (
	cmdDisplayOn      command = 0x41
	cmdDisplayOff     command = 0x42
	cmdSetCursor      command = 0x45
	cmdCursorHome     command = 0x46
	cmdUnderlineOn    command = 0x47
	cmdUnderlineOff   command = 0x48
	cmdCursorLeft     command = 0x49
	cmdCursorRight    command = 0x4A
	cmdBlinkOn        command = 0x4B
	cmdBlinkOff       command = 0x4C
	cmdBackspace      command = 0x4E
	cmdClearScreen    command = 0x51
	cmdSetContrast    command = 0x52
	cmdSetBrightness  command = 0x53
	cmdLoadCustomChar command = 0x54
	cmdShiftLeft      command = 0x55
	cmdShiftRight     command = 0x56
	cmdSetBaud        command = 0x61
	cmdSetI2CAddress  command = 0x62
	cmdShowFirmware   command = 0x70
	cmdShowBaud       command = 0x71
	cmdShowAddress    command = 0x72
)

// delay returns the execution time of the command per the datasheet.
func (c command) delay() time.Duration {
	switch c {
	case cmdCursorHome, cmdClearScreen:
		return 1500 * time.Microsecond
	case cmdSetContrast:
		return 500 * time.Microsecond
	case cmdLoadCustomChar:
		return 200 * time.Microsecond
	case cmdSetBaud, cmdSetI2CAddress:
		return 3 * time.Millisecond
	case cmdShowFirmware:
		return 4 * time.Millisecond
	case cmdShowBaud, cmdShowAddress:
		return 10 * time.Millisecond
	default:
		return 100 * time.Microsecond
	}
}

// sendCommand writes the prefix, the opcode and its parameters in a single
// transaction and waits out the command's execution time.
func (d *Dev) sendCommand(c command, params ...byte) error {
	buf := make([]byte, 0, 2+len(params))
	buf = append(buf, commandPrefix, byte(c))
	buf = append(buf, params...)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.write(buf); err != nil {
		return err
	}
	time.Sleep(c.delay())
	return nil
}
