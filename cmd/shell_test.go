package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/cadence/internal/app"
	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/mediasession"
	"github.com/llehouerou/cadence/internal/playback"
	"github.com/llehouerou/cadence/internal/player"
)

func writeWAV(t *testing.T, path string) {
	t.Helper()
	const rate, n = 8000, 8000
	b := make([]byte, 0, 44+n*2)
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, 36+n*2)
	b = append(b, "WAVEfmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint32(b, rate)
	b = binary.LittleEndian.AppendUint32(b, rate*2)
	b = binary.LittleEndian.AppendUint16(b, 2)
	b = binary.LittleEndian.AppendUint16(b, 16)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, n*2)
	b = append(b, make([]byte, n*2)...)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer, *player.Mock) {
	t.Helper()
	cfg := config.Default()
	cfg.MPRIS.Enabled = false
	cfg.Library.Watch = false
	cfg.Playback.Preload = false
	cfg.Artwork.Dir = t.TempDir()

	out := player.NewMock()
	out.SetDuration(time.Minute)
	a, err := app.New(cfg, nil, app.Options{Output: out, Surface: mediasession.Nop{}, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	var buf bytes.Buffer
	return newShell(a, &buf), &buf, out
}

func run(t *testing.T, s *shell, line string) {
	t.Helper()
	quit, err := s.exec(context.Background(), line)
	require.NoError(t, err, line)
	require.False(t, quit, line)
}

func TestShell_AddListPlay(t *testing.T) {
	s, buf, out := newTestShell(t)
	dir := t.TempDir()
	a, b := filepath.Join(dir, "alpha.wav"), filepath.Join(dir, "beta.wav")
	writeWAV(t, a)
	writeWAV(t, b)

	run(t, s, "addfile "+a+" "+b)
	assert.Contains(t, buf.String(), "Added 2 files")

	run(t, s, "ls")
	assert.Contains(t, buf.String(), "alpha.wav")
	assert.Len(t, s.listing, 2)

	run(t, s, "play 1")
	e := s.app.Engine
	require.NotNil(t, e.CurrentTrack())
	assert.Equal(t, s.listing[0].ID, e.CurrentTrack().ID)
	assert.Equal(t, playback.StatusPlaying, e.Status())
	assert.Len(t, out.PlayCalls(), 1)

	run(t, s, "next")
	assert.Equal(t, s.listing[1].ID, e.CurrentTrack().ID)

	run(t, s, "toggle")
	assert.Equal(t, playback.StatusPaused, e.Status())

	buf.Reset()
	run(t, s, "np")
	assert.Contains(t, buf.String(), "beta.wav")
}

func TestShell_PlayByQuery(t *testing.T) {
	s, _, _ := newTestShell(t)
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "alpha.wav"))
	writeWAV(t, filepath.Join(dir, "beta.wav"))
	run(t, s, "addfile "+filepath.Join(dir, "alpha.wav")+" "+filepath.Join(dir, "beta.wav"))

	run(t, s, "play beta")

	require.NotNil(t, s.app.Engine.CurrentTrack())
	assert.Equal(t, "beta.wav", s.app.Engine.CurrentTrack().Title)
	assert.Len(t, s.app.Engine.Queue(), 1)

	_, err := s.exec(context.Background(), "play gamma")
	assert.Error(t, err)
}

func TestShell_VolumeSeekShuffle(t *testing.T) {
	s, buf, out := newTestShell(t)
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "alpha.wav"))
	run(t, s, "addfile "+filepath.Join(dir, "alpha.wav"))
	run(t, s, "ls")
	run(t, s, "play 1")

	run(t, s, "vol 40")
	assert.InDelta(t, 0.4, s.app.Engine.Volume(), 1e-9)

	run(t, s, "seek 10")
	out.SetPosition(10 * time.Second)
	run(t, s, "seek +5")
	assert.Equal(t, []time.Duration{10 * time.Second, 15 * time.Second}, out.SeekCalls())

	run(t, s, "shuffle")
	assert.Contains(t, buf.String(), "Shuffle on")
	assert.True(t, s.app.Engine.Shuffle())
}

func TestShell_Errors(t *testing.T) {
	s, _, _ := newTestShell(t)

	_, err := s.exec(context.Background(), "bogus")
	assert.ErrorContains(t, err, "unknown command")

	_, err = s.exec(context.Background(), "play 3")
	assert.Error(t, err)

	_, err = s.exec(context.Background(), "seek")
	assert.Error(t, err)

	quit, err := s.exec(context.Background(), "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}
