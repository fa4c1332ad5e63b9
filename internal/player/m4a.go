package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/llehouerou/alac"
	"github.com/llehouerou/go-faad2"
	"github.com/llehouerou/go-m4a"
)

// alacFrameSize is the ALAC default frames per packet.
const alacFrameSize = 4096

// m4aDecoder streams the AAC or ALAC track of an MP4 container.
// Mono input is duplicated to both output channels.
type m4aDecoder struct {
	container *m4a.Reader
	codec     m4a.CodecType
	rate      int
	channels  int
	bitDepth  int
	total     int
	next      int // index of the next container sample
	err       error

	aac     *faad2.Decoder
	alac    *alac.Alac
	pending [][2]float64
	offset  int
}

// decodeM4A opens an MP4 container. The reader is not closed by the
// returned streamer.
func decodeM4A(src io.ReadSeeker) (beep.StreamSeekCloser, beep.Format, error) {
	container, err := m4a.Open(src)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open m4a: %w", err)
	}

	d := &m4aDecoder{
		container: container,
		codec:     container.Codec(),
		rate:      int(container.SampleRate()),
		channels:  int(container.Channels()),
		bitDepth:  int(container.SampleSize()),
	}
	d.total = int(container.Duration().Seconds() * float64(d.rate))

	precision := 2
	switch d.codec {
	case m4a.CodecAAC:
		ctx := context.Background()
		dec, err := faad2.NewDecoder(ctx)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("aac decoder: %w", err)
		}
		if err := dec.Init(ctx, container.CodecConfig()); err != nil {
			dec.Close(ctx)
			return nil, beep.Format{}, fmt.Errorf("aac decoder: %w", err)
		}
		d.aac = dec
	case m4a.CodecALAC:
		dec, err := alac.NewWithConfig(alac.Config{
			SampleRate:  d.rate,
			SampleSize:  d.bitDepth,
			NumChannels: d.channels,
			FrameSize:   alacFrameSize,
		})
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("alac decoder: %w", err)
		}
		d.alac = dec
		if d.bitDepth == 24 {
			precision = 3
		}
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: m4a codec %s", ErrUnsupportedFormat, d.codec)
	}

	format := beep.Format{
		SampleRate:  beep.SampleRate(d.rate),
		NumChannels: 2,
		Precision:   precision,
	}
	return d, format, nil
}

func (d *m4aDecoder) Stream(samples [][2]float64) (n int, ok bool) {
	if d.err != nil {
		return 0, false
	}
	for n < len(samples) {
		if d.offset < len(d.pending) {
			c := copy(samples[n:], d.pending[d.offset:])
			d.offset += c
			n += c
			continue
		}
		if d.next >= d.container.SampleCount() {
			return n, n > 0
		}
		if err := d.decodeNext(); err != nil {
			d.err = err
			return n, n > 0
		}
	}
	return n, true
}

// decodeNext decodes one container sample into the pending buffer.
func (d *m4aDecoder) decodeNext() error {
	data, err := d.container.ReadSample(d.next)
	if err != nil {
		return fmt.Errorf("read m4a sample %d: %w", d.next, err)
	}
	d.next++

	switch {
	case d.aac != nil:
		pcm, err := d.aac.Decode(context.Background(), data)
		if err != nil {
			return fmt.Errorf("decode aac: %w", err)
		}
		d.pending = int16Frames(pcm, d.channels)
	case d.alac != nil:
		d.pending = pcmFrames(d.alac.Decode(data), d.channels, d.bitDepth)
	default:
		return errors.New("m4a decoder has no codec")
	}
	d.offset = 0
	return nil
}

func (d *m4aDecoder) Err() error { return d.err }

func (d *m4aDecoder) Len() int { return d.total }

func (d *m4aDecoder) Position() int {
	return int(d.container.SampleTime(d.next).Seconds() * float64(d.rate))
}

// Seek moves to the container sample holding frame p.
func (d *m4aDecoder) Seek(p int) error {
	p = min(max(p, 0), d.total)
	pos := time.Duration(float64(p) / float64(d.rate) * float64(time.Second))
	d.next = d.container.SeekToTime(pos)
	d.pending = nil
	d.offset = 0
	d.err = nil
	return nil
}

func (d *m4aDecoder) Close() error {
	if d.aac != nil {
		d.aac.Close(context.Background())
		d.aac = nil
	}
	return nil
}

// int16Frames converts interleaved 16-bit samples to stereo frames.
func int16Frames(pcm []int16, channels int) [][2]float64 {
	channels = max(channels, 1)
	frames := make([][2]float64, len(pcm)/channels)
	for i := range frames {
		l := float64(pcm[i*channels]) / (1 << 15)
		r := l
		if channels > 1 {
			r = float64(pcm[i*channels+1]) / (1 << 15)
		}
		frames[i] = [2]float64{l, r}
	}
	return frames
}

// pcmFrames converts interleaved little-endian 16 or 24-bit PCM bytes to
// stereo frames.
func pcmFrames(data []byte, channels, bitDepth int) [][2]float64 {
	channels = max(channels, 1)
	width := 2
	scale := float64(1 << 15)
	if bitDepth == 24 {
		width = 3
		scale = 1 << 23
	}

	sample := func(b []byte) float64 {
		if width == 3 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			v = v << 8 >> 8 // sign-extend
			return float64(v) / scale
		}
		return float64(int16(uint16(b[0])|uint16(b[1])<<8)) / scale
	}

	stride := width * channels
	frames := make([][2]float64, len(data)/stride)
	for i := range frames {
		off := i * stride
		l := sample(data[off:])
		r := l
		if channels > 1 {
			r = sample(data[off+width:])
		}
		frames[i] = [2]float64{l, r}
	}
	return frames
}
