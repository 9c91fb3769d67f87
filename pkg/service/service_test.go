package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/preset"
	"github.com/itohio/pedals/pkg/profile"
	"github.com/itohio/pedals/pkg/telemetry"
)

type fixedSource struct {
	values map[int]int
}

func (s fixedSource) Read(pin int) int { return s.values[pin] }

type fixture struct {
	svc      *Service
	channels []*pedal.Channel
	gate     *pedal.Gate
	store    *profile.Store
	presets  *preset.Registry
	cell     *telemetry.Cell[telemetry.Snapshot]
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	src := fixedSource{values: map[int]int{0: 742, 1: 3500, 2: 100}}
	channels := []*pedal.Channel{
		pedal.NewChannel(0, "gas", 0, src),
		pedal.NewChannel(1, "brake", 1, src),
		pedal.NewChannel(2, "clutch", 2, src),
	}
	for _, ch := range channels {
		ch.Update()
	}

	store := profile.NewStore(filepath.Join(dir, "profiles"), filepath.Join(dir, "active.yaml"))
	require.NoError(t, store.Init())

	f := &fixture{
		channels: channels,
		gate:     &pedal.Gate{},
		store:    store,
		presets:  preset.NewRegistry(),
		cell:     &telemetry.Cell[telemetry.Snapshot]{},
		dir:      dir,
	}
	f.svc = New(channels, f.gate, f.presets, store, f.cell, nil)
	return f
}

func TestService_ApplyPartial(t *testing.T) {
	f := newFixture(t)
	before := f.channels[1].Config()

	err := f.svc.Apply([]byte(`{"gas":{"min":200,"ceil":80},"customs":[[0,0,0,0,0,0,0,0,0,0,100]]}`))
	require.NoError(t, err)

	gas := f.channels[0].Config()
	assert.Equal(t, 200, gas.CalibratedMin)
	assert.Equal(t, 80, gas.OutputCeiling)
	assert.Equal(t, pedal.DefaultConfig().CalibratedMax, gas.CalibratedMax, "omitted fields keep their value")
	assert.Equal(t, before, f.channels[1].Config(), "channels not in the document are untouched")

	c, _ := f.presets.Curve(0)
	assert.Equal(t, pedal.Curve{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100}, c)

	doc, ok, err := f.store.LoadActive()
	require.NoError(t, err)
	require.True(t, ok, "apply persists the active config")
	assert.Equal(t, 200, *doc.Channels["gas"].Min)
	assert.Len(t, doc.Channels, 3)
	assert.Len(t, doc.Customs, preset.Slots)
}

func TestService_ApplyMalformedChangesNothing(t *testing.T) {
	f := newFixture(t)
	before := f.svc.Document()

	err := f.svc.Apply([]byte(`{"gas":{"min":200},"brake":{"max":"x"}}`))
	require.Error(t, err)

	assert.Equal(t, before, f.svc.Document())
	_, ok, err := f.store.LoadActive()
	require.NoError(t, err)
	assert.False(t, ok, "nothing persisted")
}

func TestService_ApplyUnknownChannelAndTooManyCustoms(t *testing.T) {
	f := newFixture(t)

	rows := make([][]int, preset.Slots+1)
	for i := range rows {
		rows[i] = []int{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	}
	data, err := json.Marshal(map[string]any{
		"handbrake": map[string]int{"min": 1},
		"brake":     map[string]int{"smooth": 0},
		"customs":   rows,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Apply(data))
	assert.Equal(t, 0, f.channels[1].Config().Smoothing)
	c, _ := f.presets.Curve(0)
	assert.Equal(t, pedal.IdentityCurve(), c, "oversized customs are ignored")
}

func TestService_ApplyPersistFailure(t *testing.T) {
	f := newFixture(t)
	store := profile.NewStore(f.dir, filepath.Join(f.dir, "missing", "active.yaml"))
	svc := New(f.channels, f.gate, f.presets, store, f.cell, nil)

	err := svc.Apply([]byte(`{"gas":{"ceil":40}}`))
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 40, f.channels[0].Config().OutputCeiling, "in-memory config stays the source of truth")
}

func TestService_LoadActive(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.LoadActive(), "missing active file is not an error")
	assert.Equal(t, pedal.DefaultConfig(), f.channels[0].Config())

	require.NoError(t, f.svc.Apply([]byte(`{"clutch":{"inverted":true,"curve":[0,2,4,6,8,10,20,40,60,80,100]}}`)))

	// A fresh set of channels restores the saved state.
	g := newFixture(t)
	svc := New(g.channels, g.gate, g.presets, f.store, g.cell, nil)
	require.NoError(t, svc.LoadActive())
	assert.Equal(t, f.channels[2].Config(), g.channels[2].Config())
	assert.True(t, g.channels[2].Config().Inverted)
}

func TestService_LoadActiveCorrupt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "active.yaml"), []byte("gas: ["), 0644))
	assert.Error(t, f.svc.LoadActive())
}

func TestService_Profiles(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Apply([]byte(`{"gas":{"ceil":60}}`)))
	require.NoError(t, f.svc.SaveProfile("wet"))

	require.NoError(t, f.svc.Apply([]byte(`{"gas":{"ceil":90}}`)))
	require.NoError(t, f.svc.SaveProfile("dry"))

	names, err := f.svc.Profiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"dry", "wet"}, names)

	require.NoError(t, f.svc.LoadProfile("wet"))
	assert.Equal(t, 60, f.channels[0].Config().OutputCeiling)
	doc, _, err := f.store.LoadActive()
	require.NoError(t, err)
	assert.Equal(t, 60, *doc.Channels["gas"].Ceiling, "loaded profile becomes the active config")

	require.NoError(t, f.svc.DeleteProfile("wet"))
	assert.ErrorIs(t, f.svc.DeleteProfile("wet"), profile.ErrNotFound)
	assert.ErrorIs(t, f.svc.LoadProfile("wet"), profile.ErrNotFound)
	assert.ErrorIs(t, f.svc.SaveProfile("../x"), profile.ErrInvalidName)
}

func TestService_Calibrate(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.Calibrate("gas", BoundMin))
	assert.Equal(t, 742, f.channels[0].Config().CalibratedMin)

	require.NoError(t, f.svc.Calibrate("brake", BoundMax))
	assert.Equal(t, 3500, f.channels[1].Config().CalibratedMax)

	assert.ErrorIs(t, f.svc.Calibrate("handbrake", BoundMin), ErrUnknownChannel)
	assert.ErrorIs(t, f.svc.Calibrate("gas", "middle"), ErrInvalidCommand)

	doc, ok, err := f.store.LoadActive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 742, *doc.Channels["gas"].Min)
}

func TestService_HandleCommands(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		handler func(string) (string, error)
		value   string
		want    string
		wantErr error
	}{
		{"apply", f.svc.HandleConfigCommand, `{"gas":{"dzStart":12}}`, "ok", nil},
		{"apply malformed", f.svc.HandleConfigCommand, `{"gas":`, "", nil},
		{"save", f.svc.HandleProfileCommand, "save:track", "ok", nil},
		{"list", f.svc.HandleProfileCommand, "list", `["track"]`, nil},
		{"load", f.svc.HandleProfileCommand, "load:track", "ok", nil},
		{"delete", f.svc.HandleProfileCommand, "delete:track", "ok", nil},
		{"delete missing", f.svc.HandleProfileCommand, "delete:track", "", profile.ErrNotFound},
		{"profile unknown op", f.svc.HandleProfileCommand, "rename:x", "", ErrInvalidCommand},
		{"calibrate", f.svc.HandleCalibrateCommand, "clutch:max", "ok", nil},
		{"calibrate no bound", f.svc.HandleCalibrateCommand, "clutch", "", ErrInvalidCommand},
		{"calibrate unknown", f.svc.HandleCalibrateCommand, "seat:min", "", ErrUnknownChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.handler(tt.value)
			if tt.want == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, 12, f.channels[0].Config().DeadzoneStart)
	assert.Equal(t, 100, f.channels[2].Config().CalibratedMax)
}

func TestService_HandleConfigCommandExport(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.HandleConfigCommand("")
	require.NoError(t, err)

	doc, err := profile.Decode([]byte(out))
	require.NoError(t, err)
	assert.Len(t, doc.Channels, 3)
	assert.Len(t, doc.Customs, preset.Slots)
}

// TestService_ApplyIsAtomicForSampling checks that a sampling cycle never sees
// one channel updated and another not.
func TestService_ApplyIsAtomicForSampling(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var torn atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			f.gate.Cycle(func() {
				if f.channels[0].Config().OutputCeiling != f.channels[1].Config().OutputCeiling {
					torn.Store(true)
				}
			})
		}
	}()

	for i := 0; i < 50; i++ {
		ceil := 20 + i
		data, _ := json.Marshal(map[string]any{
			"gas":   map[string]int{"ceil": ceil},
			"brake": map[string]int{"ceil": ceil},
		})
		require.NoError(t, f.svc.Apply(data))
	}
	cancel()
	wg.Wait()

	assert.False(t, torn.Load())
}

func TestService_ConcurrentApplyPersistsLastConfig(t *testing.T) {
	f := newFixture(t)

	for run := 0; run < 50; run++ {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				data := fmt.Sprintf(`{"gas":{"smooth":%d}}`, i+run%10)
				assert.NoError(t, f.svc.Apply([]byte(data)))
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.Calibrate("brake", BoundMin))
		}()
		wg.Wait()

		doc, ok, err := f.store.LoadActive()
		require.NoError(t, err)
		require.True(t, ok)
		for _, ch := range f.channels {
			require.Contains(t, doc.Channels, ch.Name())
			assert.Equal(t, ch.Config(), doc.Channels[ch.Name()].Apply(pedal.Config{}),
				"run %d: active file disagrees with %s", run, ch.Name())
		}
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []telemetry.Snapshot
	err   error
}

func (p *recordingPublisher) PublishTelemetry(ctx context.Context, snap telemetry.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func TestService_Broadcast(t *testing.T) {
	f := newFixture(t)
	f.svc.SetBroadcastInterval(5 * time.Millisecond)
	pub := &recordingPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.svc.Broadcast(ctx, pub) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, pub.count(), "nothing is sent before the first snapshot")

	f.cell.Store(telemetry.Snapshot{Channels: []telemetry.ChannelSample{{Name: "gas", Raw: 1, Output: 2}}})
	require.Eventually(t, func() bool { return pub.count() >= 2 }, 5*time.Second, time.Millisecond,
		"the latest snapshot is republished every interval")

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast did not return within timeout")
	}
}

func TestService_BroadcastKeepsGoingOnError(t *testing.T) {
	f := newFixture(t)
	f.svc.SetBroadcastInterval(time.Millisecond)
	f.cell.Store(telemetry.Snapshot{})
	pub := &recordingPublisher{err: errors.New("redis down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.svc.Broadcast(ctx, pub)

	time.Sleep(10 * time.Millisecond)
	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	require.Eventually(t, func() bool { return pub.count() > 0 }, 5*time.Second, time.Millisecond)
}

func TestService_Preset(t *testing.T) {
	f := newFixture(t)
	steep := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100}
	require.NoError(t, f.svc.ApplyDocument(profile.Document{Customs: [][]int{steep}}))

	c, ok := f.svc.Preset(0)
	require.True(t, ok)
	assert.Equal(t, steep, c.Slice())

	_, ok = f.svc.Preset(preset.Slots)
	assert.False(t, ok)
}
