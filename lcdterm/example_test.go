// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdterm_test

import (
	"log"

	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/nhd0216k3z"
	"github.com/GermanBionicSystems/nhd0216k3z/lcdterm"
)

func Example() {
	// Paint an emulated 2x16 module on the console while developing
	// without hardware.
	term := lcdterm.New(nil)

	d, err := nhd0216k3z.NewSerial(term, nil)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := d.WriteMessage("Hello from the console!", true); err != nil {
		log.Fatal(err)
	}
	if err := d.Cursor(display.CursorBlink); err != nil {
		log.Fatal(err)
	}

	if err := term.Halt(); err != nil {
		log.Fatal(err)
	}
}
