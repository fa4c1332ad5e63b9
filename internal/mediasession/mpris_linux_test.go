//go:build linux

package mediasession

import (
	"testing"
	"time"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMPRIS() *MPRIS {
	return &MPRIS{
		state:    StateNone,
		handlers: make(map[Action]ActionHandler),
		opts: MPRISOptions{
			Position: func() time.Duration { return 1500 * time.Millisecond },
		},
	}
}

func TestPlayerAdapter_Dispatch(t *testing.T) {
	m := newTestMPRIS()
	p := &playerAdapter{m: m}
	var got []ActionDetails
	record := func(d ActionDetails) { got = append(got, d) }
	for _, a := range []Action{ActionPlay, ActionPause, ActionNextTrack, ActionPreviousTrack, ActionSeekTo} {
		m.SetActionHandler(a, record)
	}

	require.NoError(t, p.Next())
	require.NoError(t, p.Previous())
	require.NoError(t, p.PlayPause())
	m.SetPlaybackState(StatePlaying)
	require.NoError(t, p.PlayPause())
	require.NoError(t, p.SetPosition("", types.Microseconds(2_500_000)))

	require.Len(t, got, 5)
	assert.Equal(t, ActionNextTrack, got[0].Action)
	assert.Equal(t, ActionPreviousTrack, got[1].Action)
	assert.Equal(t, ActionPlay, got[2].Action)
	assert.Equal(t, ActionPause, got[3].Action)
	assert.Equal(t, ActionSeekTo, got[4].Action)
	assert.InDelta(t, 2.5, got[4].SeekTime, 1e-9)
}

func TestPlayerAdapter_RelativeSeekUnsupported(t *testing.T) {
	m := newTestMPRIS()
	p := &playerAdapter{m: m}
	m.SetActionHandler(ActionSeekForward, nil)

	assert.ErrorIs(t, p.Seek(types.Microseconds(5_000_000)), errNotSupported)
	assert.ErrorIs(t, p.Seek(types.Microseconds(-5_000_000)), errNotSupported)
	canSeek, _ := p.CanSeek()
	assert.False(t, canSeek)
}

func TestPlayerAdapter_StatusAndMetadata(t *testing.T) {
	m := newTestMPRIS()
	p := &playerAdapter{m: m}

	st, _ := p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusStopped, st)
	meta, _ := p.Metadata()
	assert.Empty(t, meta.Title)

	m.SetPlaybackState(StatePaused)
	m.SetMetadata(&Metadata{TrackID: "a", Title: "T", Artists: []string{"X"}, Length: time.Second, ArtworkURL: "file:///a.jpg"})

	st, _ = p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPaused, st)
	meta, _ = p.Metadata()
	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, []string{"X"}, meta.Artist)
	assert.Equal(t, types.Microseconds(1_000_000), meta.Length)
	assert.Equal(t, "file:///a.jpg", meta.ArtUrl)
	assert.Equal(t, formatTrackID("a"), string(meta.TrackId))

	pos, _ := p.Position()
	assert.Equal(t, int64(1_500_000), pos)
}

func TestPlayerAdapter_Shuffle(t *testing.T) {
	m := newTestMPRIS()
	p := &playerAdapter{m: m}

	on, err := p.Shuffle()
	require.NoError(t, err)
	assert.False(t, on)
	assert.ErrorIs(t, p.SetShuffle(true), errNotSupported)

	shuffle := false
	m.opts.Shuffle = func() bool { return shuffle }
	m.opts.SetShuffle = func(v bool) { shuffle = v }

	require.NoError(t, p.SetShuffle(true))
	on, _ = p.Shuffle()
	assert.True(t, on)
}
