package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/preset"
	"github.com/itohio/pedals/pkg/profile"
	"github.com/itohio/pedals/pkg/service"
	"github.com/itohio/pedals/pkg/telemetry"
)

// channelPanel shows the live values of one pedal and its calibration controls.
type channelPanel struct {
	name    string
	raw     *widget.ProgressBar
	output  *widget.ProgressBar
	values  *widget.Label
	buttons []*widget.Button
}

func createChannelPanels(state *appState) fyne.CanvasObject {
	box := container.NewVBox()
	for _, c := range state.cfg.Channels {
		p := newChannelPanel(state, c.Name)
		state.panels = append(state.panels, p)
		box.Add(p.card())
	}
	return container.NewVScroll(box)
}

func newChannelPanel(state *appState, name string) *channelPanel {
	p := &channelPanel{
		name:   name,
		raw:    widget.NewProgressBar(),
		output: widget.NewProgressBar(),
		values: widget.NewLabel("raw -  out -"),
	}
	p.raw.Max = pedal.FullScale
	p.output.Max = pedal.OutputMax

	minBtn := widget.NewButton("Set Min", func() {
		handleCalibrate(state, name, service.BoundMin)
	})
	maxBtn := widget.NewButton("Set Max", func() {
		handleCalibrate(state, name, service.BoundMax)
	})
	tuneBtn := widget.NewButtonWithIcon("Tune", theme.DocumentCreateIcon(), func() {
		showTuneDialog(state, name)
	})
	p.buttons = []*widget.Button{minBtn, maxBtn, tuneBtn}
	p.setEnabled(false)
	return p
}

func (p *channelPanel) card() fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Raw", p.raw),
		widget.NewFormItem("Output", p.output),
	)
	return widget.NewCard(p.name, "", container.NewVBox(
		form,
		p.values,
		container.NewHBox(p.buttons[0], p.buttons[1], p.buttons[2]),
	))
}

func (p *channelPanel) setEnabled(enabled bool) {
	for _, b := range p.buttons {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

// update must run on the main thread.
func (p *channelPanel) update(s telemetry.ChannelSample) {
	p.raw.SetValue(float64(s.Raw))
	p.output.SetValue(float64(s.Output))
	p.values.SetText(fmt.Sprintf("raw %4d  out %4d", s.Raw, s.Output))
}

// handleCalibrate captures the current raw reading as a calibration bound.
func handleCalibrate(state *appState, name string, bound service.Bound) {
	if !state.connected() {
		return
	}
	if err := state.box.Service.Calibrate(name, bound); err != nil {
		dialog.ShowError(err, state.window)
	}
}

// showTuneDialog edits the configuration of one channel.
func showTuneDialog(state *appState, name string) {
	if !state.connected() {
		return
	}
	svc := state.box.Service
	ch, err := svc.Channel(name)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	cfg := ch.Config()

	minEntry := widget.NewEntry()
	minEntry.SetText(strconv.Itoa(cfg.CalibratedMin))

	maxEntry := widget.NewEntry()
	maxEntry.SetText(strconv.Itoa(cfg.CalibratedMax))

	dzStartEntry := widget.NewEntry()
	dzStartEntry.SetText(strconv.Itoa(cfg.DeadzoneStart))

	dzEndEntry := widget.NewEntry()
	dzEndEntry.SetText(strconv.Itoa(cfg.DeadzoneEnd))

	invertedCheck := widget.NewCheck("", nil)
	invertedCheck.SetChecked(cfg.Inverted)

	smoothingLabel := widget.NewLabel(strconv.Itoa(cfg.Smoothing))
	smoothingSlider := widget.NewSlider(0, pedal.MaxSmoothing)
	smoothingSlider.Step = 1
	smoothingSlider.SetValue(float64(cfg.Smoothing))
	smoothingSlider.OnChanged = func(v float64) {
		smoothingLabel.SetText(strconv.Itoa(int(v)))
	}

	ceilingLabel := widget.NewLabel(strconv.Itoa(cfg.OutputCeiling) + "%")
	ceilingSlider := widget.NewSlider(0, 100)
	ceilingSlider.Step = 1
	ceilingSlider.SetValue(float64(cfg.OutputCeiling))
	ceilingSlider.OnChanged = func(v float64) {
		ceilingLabel.SetText(strconv.Itoa(int(v)) + "%")
	}

	curveEntry := widget.NewEntry()
	curveEntry.SetText(formatCurve(cfg.Curve.Slice()))

	presetNames := make([]string, preset.Slots)
	for i := range presetNames {
		presetNames[i] = fmt.Sprintf("Custom %d", i+1)
	}
	presetSelect := widget.NewSelect(presetNames, func(selected string) {
		for i, n := range presetNames {
			if n != selected {
				continue
			}
			if c, ok := svc.Preset(i); ok {
				curveEntry.SetText(formatCurve(c.Slice()))
			}
		}
	})
	presetSelect.PlaceHolder = "Load preset"

	items := []*widget.FormItem{
		{Text: "Calibrated Min", Widget: minEntry},
		{Text: "Calibrated Max", Widget: maxEntry},
		{Text: "Deadzone Start", Widget: dzStartEntry},
		{Text: "Deadzone End", Widget: dzEndEntry},
		{Text: "Inverted", Widget: invertedCheck},
		{Text: "Smoothing", Widget: container.NewBorder(nil, nil, nil, smoothingLabel, smoothingSlider)},
		{Text: "Ceiling", Widget: container.NewBorder(nil, nil, nil, ceilingLabel, ceilingSlider)},
		{Text: "Curve (%)", Widget: curveEntry, HintText: "11 comma separated points"},
		{Text: "", Widget: presetSelect},
	}

	d := dialog.NewForm("Tune "+name, "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		patch, err := patchFromForm(tuneForm{
			min:       minEntry.Text,
			max:       maxEntry.Text,
			dzStart:   dzStartEntry.Text,
			dzEnd:     dzEndEntry.Text,
			inverted:  invertedCheck.Checked,
			smoothing: int(smoothingSlider.Value),
			ceiling:   int(ceilingSlider.Value),
			curve:     curveEntry.Text,
		})
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		doc := profile.Document{Channels: map[string]*profile.ChannelPatch{name: patch}}
		if err := svc.ApplyDocument(doc); err != nil {
			dialog.ShowError(err, state.window)
		}
		state.curve.SetConfig(ch.Config())
	}, state.window)
	d.Resize(fyne.NewSize(500, 550))
	d.Show()
}

// tuneForm is the text content of the tune dialog.
type tuneForm struct {
	min, max       string
	dzStart, dzEnd string
	inverted       bool
	smoothing      int
	ceiling        int
	curve          string
}

var errCurveLength = fmt.Errorf("curve needs %d points", pedal.CurvePointCount)

// patchFromForm converts the dialog fields into a patch. Every field is set.
func patchFromForm(f tuneForm) (*profile.ChannelPatch, error) {
	var errs []error
	atoi := func(label, s string) *int {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			return nil
		}
		return &v
	}

	p := &profile.ChannelPatch{
		Min:           atoi("min", f.min),
		Max:           atoi("max", f.max),
		DeadzoneStart: atoi("deadzone start", f.dzStart),
		DeadzoneEnd:   atoi("deadzone end", f.dzEnd),
		Inverted:      &f.inverted,
		Smoothing:     &f.smoothing,
		Ceiling:       &f.ceiling,
	}

	curve, err := parseCurve(f.curve)
	if err != nil {
		errs = append(errs, err)
	}
	p.Curve = curve

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

// parseCurve reads "0, 10, 20, ..." into exactly pedal.CurvePointCount values.
func parseCurve(s string) ([]int, error) {
	fields := strings.Split(s, ",")
	if len(fields) != pedal.CurvePointCount {
		return nil, fmt.Errorf("%w, got %d", errCurveLength, len(fields))
	}
	pts := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("curve point %d: %w", i, err)
		}
		pts[i] = v
	}
	return pts, nil
}

func formatCurve(pts []int) string {
	parts := make([]string, len(pts))
	for i, v := range pts {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
