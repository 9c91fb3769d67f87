package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itohio/pedals/pkg/pedal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "profiles"), filepath.Join(dir, "active.yaml"))
	require.NoError(t, s.Init())
	return s
}

func sampleDocument() Document {
	cfg := pedal.DefaultConfig()
	cfg.CalibratedMin = 200
	cfg.OutputCeiling = 80
	return Document{
		Channels: map[string]*ChannelPatch{"gas": PatchFrom(cfg)},
		Customs:  [][]int{{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100}},
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "F1", "F1", false},
		{"with extension", "rally.yaml", "rally", false},
		{"trimmed", "  drift ", "drift", false},
		{"empty", "", "", true},
		{"dot", ".", "", true},
		{"dotdot", "..", "", true},
		{"slash", "../etc/passwd", "", true},
		{"backslash", `a\b`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_SaveLoadListDelete(t *testing.T) {
	s := newTestStore(t)

	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	doc := sampleDocument()
	require.NoError(t, s.Save("wet", doc))
	require.NoError(t, s.Save("dry.yaml", doc))

	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"dry", "wet"}, names)

	loaded, err := s.Load("wet")
	require.NoError(t, err)
	got := loaded.Channels["gas"].Apply(pedal.Config{})
	want := doc.Channels["gas"].Apply(pedal.Config{})
	assert.Equal(t, want, got)
	assert.Equal(t, doc.Customs, loaded.Customs)

	require.NoError(t, s.Delete("wet"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"dry"}, names)
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RejectsPathSeparators(t *testing.T) {
	s := newTestStore(t)

	assert.ErrorIs(t, s.Save("../escape", sampleDocument()), ErrInvalidName)
	_, err := s.Load("a/b")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, s.Delete("/abs"), ErrInvalidName)
}

func TestStore_ListMissingDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), "")
	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_ListIgnoresOtherFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.dir, "sub.yaml"), 0755))
	require.NoError(t, s.Save("one", sampleDocument()))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, names)
}

func TestStore_Active(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LoadActive()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveActive(sampleDocument()))

	doc, ok, err := s.LoadActive()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80, *doc.Channels["gas"].Ceiling)
}

func TestStore_ActiveInvalidYAML(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.activePath, []byte("gas: [unterminated"), 0644))

	_, _, err := s.LoadActive()
	assert.Error(t, err)
}

func TestStore_SaveWriteFailure(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing", "dir"), "")
	assert.Error(t, s.Save("x", sampleDocument()))
}
