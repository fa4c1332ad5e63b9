package player

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Play binds src to the output and starts playback. ext selects the decoder.
// onEnded is called once, on its own goroutine, when the source plays to its
// end. Any previously bound source is unbound first.
func (p *Player) Play(src io.ReadSeeker, ext string, onEnded func()) error {
	p.Stop()

	streamer, format, err := decode(src, ext)
	if err != nil {
		return err
	}

	if err := ensureSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		return err
	}

	var playStreamer beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		playStreamer = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.streamer = streamer
	p.format = format
	p.ended.Store(false)
	p.ctrl = &beep.Ctrl{Paused: false}
	p.ctrl.Streamer = &endDetector{
		Streamer: playStreamer,
		ctrl:     p.ctrl,
		ended:    &p.ended,
		onEnded:  onEnded,
	}
	p.volume = &effects.Volume{
		Streamer: p.ctrl,
		Base:     2,
		Volume:   levelToVolume(p.volumeLevel),
		Silent:   p.volumeLevel == 0,
	}
	p.state = Playing

	speaker.Play(p.volume)
	return nil
}

func ensureSpeaker(rate beep.SampleRate) error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speakerSampleRate = rate
	speakerInitialized = true
	return nil
}

// decode picks a decoder by container extension.
func decode(src io.ReadSeeker, ext string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(ext) {
	case extMP3:
		return mp3.Decode(readSeekNopCloser{src})
	case extFLAC:
		// Some taggers prepend an ID3v2 tag the FLAC decoder does not expect.
		if err := skipID3v2(src); err != nil {
			return nil, beep.Format{}, err
		}
		return flac.Decode(src)
	case extWAV:
		return wav.Decode(src)
	case extOGG:
		return vorbis.Decode(readSeekNopCloser{src})
	case extM4A:
		return decodeM4A(src)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// skipID3v2 skips an ID3v2 tag if present at the beginning of the stream.
func skipID3v2(r io.ReadSeeker) error {
	header := make([]byte, 10)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	if n < 10 || string(header[0:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}

	// Syncsafe integer: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])

	_, err = r.Seek(10+size, io.SeekStart)
	return err
}
