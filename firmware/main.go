//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	pedals [len(pedalPins)]machine.ADC

	// Timing
	lastADCRead time.Time
)

func main() {
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	machine.InitADC()
	for i, pin := range pedalPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		pedals[i] = machine.ADC{Pin: pin}
		pedals[i].Configure(adcConfig)
	}

	lastADCRead = time.Now()

	for {
		now := time.Now()
		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			outputReadings()
			lastADCRead = now
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// outputReadings prints one frame: a 12-bit reading per pedal.
// Output format: "gas,brake,clutch\n", e.g. "2048,130,4095\n"
func outputReadings() {
	for i := range pedals {
		if i > 0 {
			print(",")
		}
		// machine.ADC.Get is left-aligned to 16 bits
		print(pedals[i].Get() >> (16 - ADC_RESOLUTION))
	}
	print("\n")
}
