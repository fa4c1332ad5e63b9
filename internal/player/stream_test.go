package player

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipID3v2_NoTag(t *testing.T) {
	r := bytes.NewReader([]byte("fLaC0000000000000000"))

	require.NoError(t, skipID3v2(r))

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(0), pos)
}

func TestSkipID3v2_WithTag(t *testing.T) {
	// ID3 header with a syncsafe size of 5, then 5 bytes of tag, then payload.
	data := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 5}
	data = append(data, 1, 2, 3, 4, 5)
	data = append(data, []byte("fLaC")...)
	r := bytes.NewReader(data)

	require.NoError(t, skipID3v2(r))

	rest, _ := io.ReadAll(r)
	assert.Equal(t, "fLaC", string(rest))
}

func TestSkipID3v2_ShortStream(t *testing.T) {
	r := bytes.NewReader([]byte("ab"))

	require.NoError(t, skipID3v2(r))

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(0), pos)
}

func TestDecode_Unsupported(t *testing.T) {
	_, _, err := decode(bytes.NewReader([]byte("data")), ".opus")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDecode_InvalidM4A(t *testing.T) {
	_, _, err := decode(bytes.NewReader([]byte("not an mp4 container")), ".M4A")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDecode_InvalidWAV(t *testing.T) {
	_, _, err := decode(bytes.NewReader([]byte("not a riff file at all")), ".WAV")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"song.mp3", true},
		{"song.FLAC", true},
		{"song.wav", true},
		{"song.ogg", true},
		{"song.m4a", true},
		{"song.opus", false},
		{"cover.jpg", false},
		{"noext", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMusicFile(tt.path), "IsMusicFile(%q)", tt.path)
	}
}

func TestCanDecode(t *testing.T) {
	assert.True(t, CanDecode(".mp3"))
	assert.True(t, CanDecode(".OGG"))
	assert.True(t, CanDecode(".m4a"))
	assert.False(t, CanDecode(".opus"))
	assert.False(t, CanDecode(""))
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, -10.0, levelToVolume(0))
	assert.Equal(t, -10.0, levelToVolume(-1))
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, 0.0, levelToVolume(2))
	assert.InDelta(t, -1.0, levelToVolume(0.5), 1e-9)
	assert.InDelta(t, -2.0, levelToVolume(0.25), 1e-9)
}

func TestNew_Defaults(t *testing.T) {
	p := New()
	assert.Equal(t, Stopped, p.State())
	assert.Equal(t, 1.0, p.Volume())
	assert.Equal(t, int64(0), int64(p.Duration()))
	assert.Equal(t, int64(0), int64(p.Position()))
}
