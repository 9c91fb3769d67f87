package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/pedals/pkg/config"
	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/pedalbox"
	"github.com/itohio/pedals/pkg/sample"
	"github.com/itohio/pedals/pkg/scope"
	"github.com/itohio/pedals/pkg/telemetry"
)

const (
	traceWindow = 5 * time.Second
	// Telemetry arrives every 30ms by default; keep a little more than the window.
	historySize = 256
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "pedals-service.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated pedals instead of the ADC board")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Device.Port = *portFlag
	}
	if *mockFlag {
		cfg.Device.Kind = config.DeviceMock
	}

	application := app.NewWithID("com.itohio.pedals")

	window := application.NewWindow("Pedal Tuner")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		log:        logger.NewStd(logger.LogLevel(cfg.Log.Level)),
		window:     window,
		curve:      scope.NewCurve(pedal.DefaultConfig()),
		trace:      scope.NewTrace(traceWindow),
	}

	toolbar := createToolbar(state)
	channels := createChannelPanels(state)

	plots := container.NewVSplit(state.curve, state.trace)
	plots.SetOffset(0.6)

	content := container.NewBorder(
		toolbar,
		nil,
		channels,
		nil,
		plots,
	)

	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.SetContent(content)
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	log        *logger.Logger
	window     fyne.Window

	connectBtn  *widget.Button
	profilesBtn *widget.Button
	panels      []*channelPanel
	curve       *scope.CurveWidget
	trace       *scope.TraceWidget

	// Set while connected.
	box       *pedalbox.Box
	cancel    context.CancelFunc
	done      chan struct{}
	histories []*sample.History

	selectedMu sync.RWMutex
	selected   int

	throttle throttle
}

func (s *appState) connected() bool {
	return s.box != nil
}

func (s *appState) selectedChannel() int {
	s.selectedMu.RLock()
	defer s.selectedMu.RUnlock()
	return s.selected
}

func (s *appState) selectChannel(i int) {
	s.selectedMu.Lock()
	s.selected = i
	s.selectedMu.Unlock()

	if s.connected() && i < len(s.box.Channels) {
		s.curve.SetConfig(s.box.Channels[i].Config())
	}
}

// createToolbar creates the application toolbar with Connect, Settings and Profiles buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	profilesBtn := widget.NewButtonWithIcon("Profiles", theme.FolderOpenIcon(), func() {
		showProfilesDialog(state)
	})
	profilesBtn.Disable()
	state.profilesBtn = profilesBtn

	names := make([]string, len(state.cfg.Channels))
	for i, c := range state.cfg.Channels {
		names[i] = c.Name
	}
	channelSelect := widget.NewSelect(names, func(selected string) {
		for i, n := range names {
			if n == selected {
				state.selectChannel(i)
				return
			}
		}
	})
	if len(names) > 0 {
		channelSelect.SetSelected(names[0])
	}

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(connectBtn, settingsBtn, profilesBtn),
		container.NewHBox(widget.NewLabel("Plot"), channelSelect),
		nil,
	)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		disconnect(state)
		state.connectBtn.SetIcon(theme.LoginIcon())
		state.profilesBtn.Disable()
		for _, p := range state.panels {
			p.setEnabled(false)
		}
		state.log.Infof("Disconnected from %s device", state.cfg.Device.Kind)
		return
	}

	dev, err := pedalbox.NewDevice(state.cfg, state.log)
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	box, err := pedalbox.New(state.cfg, dev, state.log)
	if err != nil {
		if state.cfg.Device.Kind == config.DeviceSerial {
			err = fmt.Errorf("failed to connect to %s: %w", state.cfg.Device.Port, err)
		}
		dialog.ShowError(err, state.window)
		return
	}
	state.log.Infof("Connected to %s device", state.cfg.Device.Kind)

	state.histories = make([]*sample.History, len(box.Channels))
	for i := range state.histories {
		state.histories[i] = sample.NewHistory(historySize)
	}

	// Register before Run so the first snapshot is not missed.
	box.Sampler.OnUpdate(func(snap telemetry.Snapshot) {
		onSnapshot(state, box, snap)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := box.Run(ctx, nil); err != nil {
			state.log.Errorf("Sampling stopped: %v", err)
		}
	}()

	state.box = box
	state.cancel = cancel
	state.done = done

	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.profilesBtn.Enable()
	for _, p := range state.panels {
		p.setEnabled(true)
	}
	state.selectChannel(state.selectedChannel())
}

// disconnect stops sampling and waits for it to finish before closing the device.
func disconnect(state *appState) {
	if !state.connected() {
		return
	}
	state.cancel()
	<-state.done
	if err := state.box.Close(); err != nil {
		state.log.Warnf("Close: %v", err)
	}
	state.box = nil
	state.cancel = nil
	state.done = nil
}

// onSnapshot runs on the sampler goroutine for every published snapshot.
func onSnapshot(state *appState, box *pedalbox.Box, snap telemetry.Snapshot) {
	for i, c := range snap.Channels {
		if i < len(state.histories) {
			state.histories[i].Add(sample.Point{Timestamp: snap.Taken, Raw: c.Raw, Output: c.Output})
		}
	}

	if !state.throttle.ready(snap.Taken) {
		return
	}

	sel := state.selectedChannel()
	if sel >= len(box.Channels) {
		return
	}
	cfg := box.Channels[sel].Config()
	points := state.histories[sel].Points(nil)
	raw := snap.Channels[sel].Raw

	UpdateWidgetOnMainThread(func() {
		for i, p := range state.panels {
			if i < len(snap.Channels) {
				p.update(snap.Channels[i])
			}
		}
		state.curve.SetConfig(cfg)
		state.curve.SetRaw(raw)
		state.trace.UpdateData(points)
	})
}
