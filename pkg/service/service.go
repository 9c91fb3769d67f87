// Package service implements the configuration side of the pedal box:
// applying config documents, managing profiles, calibration and telemetry
// broadcast. Every change to channel configuration goes through the gate.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/preset"
	"github.com/itohio/pedals/pkg/profile"
	"github.com/itohio/pedals/pkg/telemetry"
)

// DefaultBroadcastInterval is the telemetry push period.
const DefaultBroadcastInterval = 50 * time.Millisecond

var (
	// ErrUnknownChannel is returned for a channel name that does not exist.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrInvalidCommand is returned for a malformed command string.
	ErrInvalidCommand = errors.New("invalid command")
	// ErrPersist wraps storage failures after a change was applied in memory.
	ErrPersist = errors.New("configuration applied but not saved")
)

// Publisher delivers telemetry snapshots to remote consumers.
type Publisher interface {
	PublishTelemetry(ctx context.Context, snap telemetry.Snapshot) error
}

// Service owns configuration changes for a fixed set of channels.
type Service struct {
	// mu makes each change and the save that follows it one step, so the
	// active file always ends up matching memory.
	mu sync.Mutex

	channels []*pedal.Channel
	byName   map[string]*pedal.Channel
	gate     *pedal.Gate
	presets  *preset.Registry
	store    *profile.Store
	cell     *telemetry.Cell[telemetry.Snapshot]
	log      *logger.Logger

	broadcastInterval time.Duration
}

// New creates a service. The gate must be the one the sampler cycles through.
func New(channels []*pedal.Channel, gate *pedal.Gate, presets *preset.Registry, store *profile.Store, cell *telemetry.Cell[telemetry.Snapshot], l *logger.Logger) *Service {
	if l == nil {
		l = logger.Discard()
	}
	byName := make(map[string]*pedal.Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	return &Service{
		channels:          channels,
		byName:            byName,
		gate:              gate,
		presets:           presets,
		store:             store,
		cell:              cell,
		log:               l.WithTag("service"),
		broadcastInterval: DefaultBroadcastInterval,
	}
}

// SetBroadcastInterval changes the telemetry push period.
func (s *Service) SetBroadcastInterval(d time.Duration) {
	if d > 0 {
		s.broadcastInterval = d
	}
}

// Channel returns the channel called name.
func (s *Service) Channel(name string) (*pedal.Channel, error) {
	ch, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// Document exports the configuration of every channel and all presets.
func (s *Service) Document() profile.Document {
	doc := profile.Document{
		Channels: make(map[string]*profile.ChannelPatch, len(s.channels)),
		Customs:  s.presets.Rows(),
	}
	for _, ch := range s.channels {
		doc.Channels[ch.Name()] = profile.PatchFrom(ch.Config())
	}
	return doc
}

// Preset returns the custom curve stored in slot.
func (s *Service) Preset(slot int) (pedal.Curve, bool) {
	return s.presets.Curve(slot)
}

// Apply parses a JSON config document, applies it and persists the result
// as the active configuration. A document that fails to parse changes nothing.
func (s *Service) Apply(data []byte) error {
	doc, err := profile.Decode(data)
	if err != nil {
		return err
	}
	return s.ApplyDocument(doc)
}

// ApplyDocument applies doc and persists the result as the active configuration.
func (s *Service) ApplyDocument(doc profile.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyAndPersist(doc)
}

func (s *Service) applyAndPersist(doc profile.Document) error {
	if err := s.apply(doc); err != nil {
		return err
	}
	return s.persist()
}

// apply updates presets first, then every channel named in doc, all within one
// pause of the sampling loop.
func (s *Service) apply(doc profile.Document) error {
	if doc.Customs != nil {
		n, err := s.presets.Load(doc.Customs)
		if err != nil {
			s.log.Warnf("Ignoring customs: %v", err)
		} else if n < len(doc.Customs) {
			s.log.Warnf("Ignored %d malformed custom curves", len(doc.Customs)-n)
		}
	}

	for name := range doc.Channels {
		if _, ok := s.byName[name]; !ok {
			s.log.Warnf("Ignoring config for unknown channel %q", name)
		}
	}

	return s.gate.Do(func() error {
		for _, ch := range s.channels {
			p, ok := doc.Channels[ch.Name()]
			if !ok {
				continue
			}
			ch.SetConfig(p.Apply(ch.Config()))
		}
		return nil
	})
}

func (s *Service) persist() error {
	if err := s.store.SaveActive(s.Document()); err != nil {
		s.log.Errorf("Failed to save active config: %v", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// LoadActive restores the configuration saved by the last apply. It is a
// no-op when nothing was saved yet.
func (s *Service) LoadActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok, err := s.store.LoadActive()
	if err != nil {
		return fmt.Errorf("failed to load active config: %w", err)
	}
	if !ok {
		s.log.Infof("No saved configuration, using defaults")
		return nil
	}
	s.log.Infof("Restoring saved configuration")
	return s.apply(doc)
}

// Profiles lists the saved profile names.
func (s *Service) Profiles() ([]string, error) {
	return s.store.List()
}

// SaveProfile stores the current configuration under name.
func (s *Service) SaveProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(name, s.Document()); err != nil {
		return err
	}
	s.log.Infof("Saved profile %q", name)
	return nil
}

// LoadProfile applies the named profile and persists it as the active configuration.
func (s *Service) LoadProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(name)
	if err != nil {
		return err
	}
	if err := s.applyAndPersist(doc); err != nil {
		return err
	}
	s.log.Infof("Loaded profile %q", name)
	return nil
}

// DeleteProfile removes the named profile.
func (s *Service) DeleteProfile(name string) error {
	if err := s.store.Delete(name); err != nil {
		return err
	}
	s.log.Infof("Deleted profile %q", name)
	return nil
}

// Bound selects which calibration limit to capture.
type Bound string

const (
	BoundMin Bound = "min"
	BoundMax Bound = "max"
)

// Calibrate sets one calibration bound of the named channel to its current
// raw reading and persists the result.
func (s *Service) Calibrate(name string, bound Bound) error {
	ch, err := s.Channel(name)
	if err != nil {
		return err
	}

	var capture func()
	switch bound {
	case BoundMin:
		capture = ch.CalibrateMin
	case BoundMax:
		capture = ch.CalibrateMax
	default:
		return fmt.Errorf("%w: calibration bound %q", ErrInvalidCommand, bound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.Do(func() error {
		capture()
		return nil
	}); err != nil {
		return err
	}
	s.log.Infof("Calibrated %s %s to %d", name, bound, ch.Raw())
	return s.persist()
}

// HandleConfigCommand applies a JSON document received as a command. An
// empty command returns the current document instead.
func (s *Service) HandleConfigCommand(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		data, err := profile.Encode(s.Document())
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return result(s.Apply([]byte(value)))
}

// HandleProfileCommand executes "list", "save:<name>", "load:<name>" or "delete:<name>".
func (s *Service) HandleProfileCommand(value string) (string, error) {
	op, name, _ := strings.Cut(strings.TrimSpace(value), ":")

	switch op {
	case "list":
		names, err := s.Profiles()
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(names)
		if err != nil {
			return "", fmt.Errorf("failed to encode profile list: %w", err)
		}
		return string(data), nil
	case "save":
		return result(s.SaveProfile(name))
	case "load":
		return result(s.LoadProfile(name))
	case "delete":
		return result(s.DeleteProfile(name))
	default:
		return "", fmt.Errorf("%w: profile %q", ErrInvalidCommand, value)
	}
}

// HandleCalibrateCommand executes "<channel>:min" or "<channel>:max".
func (s *Service) HandleCalibrateCommand(value string) (string, error) {
	name, bound, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return "", fmt.Errorf("%w: calibrate %q", ErrInvalidCommand, value)
	}
	return result(s.Calibrate(name, Bound(bound)))
}

func result(err error) (string, error) {
	if err != nil {
		return "", err
	}
	return "ok", nil
}

// Broadcast pushes the latest telemetry snapshot through pub every broadcast
// interval until ctx is cancelled. Ticks before the first snapshot are skipped.
func (s *Service) Broadcast(ctx context.Context, pub Publisher) error {
	ticker := time.NewTicker(s.broadcastInterval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, ok := s.cell.Peek()
			if !ok {
				continue
			}
			if err := pub.PublishTelemetry(ctx, snap); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !failing {
					s.log.Warnf("Telemetry publish failed: %v", err)
					failing = true
				}
				continue
			}
			failing = false
		}
	}
}
