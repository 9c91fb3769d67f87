//go:build tinygo

package main

import "machine"

const (
	SAMPLE_INTERVAL_MS = 1 // one frame per millisecond; the host oversamples

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)
)

// Pedal inputs in channel order: gas, brake, clutch.
// Frame "4095,4095,4095\n" is 15 bytes; 1000 frames/s fits USB CDC easily.
var pedalPins = [...]machine.Pin{machine.A0, machine.A1, machine.A2}
