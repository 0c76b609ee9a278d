// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package nhd0216k3z

import "fmt"

// specialChars maps runes without a direct ASCII encoding to their position
// in the controller's character ROM. '\x00' through '\x07' select the eight
// loadable custom characters. The ROM holds more glyphs than listed here;
// for those, send the code from the datasheet's character table with Write.
var specialChars = map[rune]byte{
	'\x00': 0x00,
	'\x01': 0x01,
	'\x02': 0x02,
	'\x03': 0x03,
	'\x04': 0x04,
	'\x05': 0x05,
	'\x06': 0x06,
	'\x07': 0x07,

	'¥': 0x5C,
	'→': 0x7E,
	'←': 0x7F,
	'°': 0xDF,
	'α': 0xE0,
	'ä': 0xE1,
	'β': 0xE2,
	'Ɛ': 0xE3,
	'μ': 0xE4,
	'σ': 0xE5,
	'ρ': 0xE6,
	'√': 0xE8,
	'¢': 0xEC,
	'ñ': 0xEE,
	'ö': 0xEF,
	'θ': 0xF2,
	'∞': 0xF3,
	'Ω': 0xF4,
	'Σ': 0xF6,
	'π': 0xF7,
	'÷': 0xFD,
	'■': 0xFF,
}

// charCode returns the device code for a rune. ASCII 0x20..0x7D matches the
// ROM directly except for backslash, which the ROM replaces with ¥.
func charCode(r rune) (byte, error) {
	if code, ok := specialChars[r]; ok {
		return code, nil
	}
	if r >= 0x20 && r <= 0x7D && r != '\\' {
		return byte(r), nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnsupportedChar, r)
}
