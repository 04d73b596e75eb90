// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// pidconf - Motor PID Controller Configuration Client
//
// A CLI tool for reading and writing the tuning parameters of the motor
// PID controller over its serial configuration protocol.

package main

import (
	"os"

	"github.com/Thermoquad/pidconf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
