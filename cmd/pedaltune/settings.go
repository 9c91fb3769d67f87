package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/pedals/pkg/adc"
	"github.com/itohio/pedals/pkg/config"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createDeviceTab(state),
		createSamplingTab(state),
		createHIDTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveSettings validates and writes the configuration. A running box is
// restarted so the new settings take effect.
func saveSettings(state *appState) {
	if err := state.cfg.Validate(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}

	if state.connected() {
		handleConnect(state) // disconnect
		handleConnect(state) // reconnect with new settings
	}
}

// createDeviceTab creates the ADC device configuration tab.
func createDeviceTab(state *appState) *container.TabItem {
	kindSelect := widget.NewSelect([]string{config.DeviceSerial, config.DeviceMock, config.DeviceIIO}, nil)
	kindSelect.SetSelected(state.cfg.Device.Kind)

	ports, err := adc.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Device.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Device.Baud))

	iioEntry := widget.NewEntry()
	iioEntry.SetText(state.cfg.Device.IIODevice)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Device", Widget: kindSelect},
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "IIO Device", Widget: iioEntry, HintText: adc.DefaultIIORoot + "/iio:device0"},
		},
		OnSubmit: func() {
			if kindSelect.Selected != "" {
				state.cfg.Device.Kind = kindSelect.Selected
			}
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				state.cfg.Device.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Device.Baud = baud
			}
			state.cfg.Device.IIODevice = iioEntry.Text
			saveSettings(state)
		},
	}

	return container.NewTabItem("Device", form)
}

// createSamplingTab creates the sampling loop configuration tab.
func createSamplingTab(state *appState) *container.TabItem {
	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Sampling.Interval.String())

	telemetryEntry := widget.NewEntry()
	telemetryEntry.SetText(state.cfg.Sampling.TelemetryInterval.String())

	oversampleEntry := widget.NewEntry()
	oversampleEntry.SetText(strconv.Itoa(state.cfg.Sampling.Oversample))

	resyncCheck := widget.NewCheck("", nil)
	resyncCheck.SetChecked(state.cfg.Sampling.ResyncFilter)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Sample Interval", Widget: intervalEntry},
			{Text: "Telemetry Interval", Widget: telemetryEntry},
			{Text: "Oversample", Widget: oversampleEntry},
			{Text: "Reset Filter On Change", Widget: resyncCheck},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(intervalEntry.Text); err == nil && d > 0 {
				state.cfg.Sampling.Interval = d
			}
			if d, err := time.ParseDuration(telemetryEntry.Text); err == nil && d > 0 {
				state.cfg.Sampling.TelemetryInterval = d
			}
			if n, err := strconv.Atoi(oversampleEntry.Text); err == nil && n > 0 {
				state.cfg.Sampling.Oversample = n
			}
			state.cfg.Sampling.ResyncFilter = resyncCheck.Checked
			saveSettings(state)
		},
	}

	return container.NewTabItem("Sampling", form)
}

// createHIDTab creates the virtual joystick configuration tab.
func createHIDTab(state *appState) *container.TabItem {
	enabledCheck := widget.NewCheck("", nil)
	enabledCheck.SetChecked(state.cfg.HID.Enabled)

	nameEntry := widget.NewEntry()
	nameEntry.SetText(state.cfg.HID.Name)

	minEntry := widget.NewEntry()
	minEntry.SetText(strconv.Itoa(state.cfg.HID.AxisMin))

	maxEntry := widget.NewEntry()
	maxEntry.SetText(strconv.Itoa(state.cfg.HID.AxisMax))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Enabled", Widget: enabledCheck},
			{Text: "Device Name", Widget: nameEntry},
			{Text: "Axis Min", Widget: minEntry},
			{Text: "Axis Max", Widget: maxEntry},
		},
		OnSubmit: func() {
			state.cfg.HID.Enabled = enabledCheck.Checked
			if nameEntry.Text != "" {
				state.cfg.HID.Name = nameEntry.Text
			}
			if v, err := strconv.Atoi(minEntry.Text); err == nil {
				state.cfg.HID.AxisMin = v
			}
			if v, err := strconv.Atoi(maxEntry.Text); err == nil {
				state.cfg.HID.AxisMax = v
			}
			saveSettings(state)
		},
	}

	return container.NewTabItem("Joystick", form)
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	noiseEntry := widget.NewEntry()
	noiseEntry.SetText(strconv.Itoa(state.cfg.Mock.Noise))

	travelEntry := widget.NewEntry()
	travelEntry.SetText(strconv.Itoa(state.cfg.Mock.Travel))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Press Period", Widget: periodEntry},
			{Text: "Noise (counts)", Widget: noiseEntry},
			{Text: "Travel (counts)", Widget: travelEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(periodEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.Period = d
			}
			if n, err := strconv.Atoi(noiseEntry.Text); err == nil && n >= 0 {
				state.cfg.Mock.Noise = n
			}
			if n, err := strconv.Atoi(travelEntry.Text); err == nil && n >= 0 {
				state.cfg.Mock.Travel = n
			}
			saveSettings(state)
		},
	}

	return container.NewTabItem("Mock", form)
}
