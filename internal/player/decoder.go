package player

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Decoder yields interleaved signed 16-bit little-endian PCM at the
// source's own sample rate and channel count.
type Decoder interface {
	io.ReadSeeker
	Length() int64 // total PCM bytes, or -1 if unknown
	SampleRate() int
	ChannelCount() int
}

// NewDecoder returns the decoder for format (a lower-case extension).
func NewDecoder(r io.ReadSeeker, format string) (Decoder, error) {
	switch strings.ToLower(format) {
	case ".mp3":
		return newMP3Decoder(r)
	case ".wav":
		return newWAVDecoder(r)
	case ".flac":
		return newFLACDecoder(r)
	case ".ogg":
		return newOGGDecoder(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// clampPCM seeks offset/whence within [0, length].
func clampPCM(pos, length, offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = pos + offset
	case io.SeekEnd:
		next = length + offset
	default:
		return pos, fmt.Errorf("invalid seek whence: %d", whence)
	}
	return max(0, min(next, length)), nil
}

func putSample(dst []byte, s int) {
	s = max(-32768, min(s, 32767))
	binary.LittleEndian.PutUint16(dst, uint16(int16(s)))
}

// pending holds converted bytes a caller's buffer could not take.
type pending struct {
	buf []byte
	pos int64
}

func (p *pending) drain(dst []byte) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	p.pos += int64(n)
	return n
}

func (p *pending) emit(dst, raw []byte) int {
	n := copy(dst, raw)
	if n < len(raw) {
		p.buf = append(p.buf[:0], raw[n:]...)
	}
	p.pos += int64(n)
	return n
}

// --- MP3 ---

type mp3Decoder struct {
	dec *mp3.Decoder
}

func newMP3Decoder(r io.ReadSeeker) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("decoding MP3: %w", err)
	}
	return &mp3Decoder{dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Length() int64     { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int   { return d.dec.SampleRate() }
func (d *mp3Decoder) ChannelCount() int { return 2 } // go-mp3 always yields stereo

// --- WAV ---

type wavDecoder struct {
	pending
	r            io.ReadSeeker
	totalBytes   int64
	pcmStart     int64
	sampleRate   int
	channels     int
	srcBitDepth  int
	srcFrameSize int64
	scratch      []byte
}

func newWAVDecoder(r io.ReadSeeker) (*wavDecoder, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth: %d", bitDepth)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid WAV channel count: %d", channels)
	}
	srcFrameSize := int64(channels * bitDepth / 8)

	pcmStart, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("getting PCM start position: %w", err)
	}

	frames := dec.PCMLen() / srcFrameSize
	return &wavDecoder{
		r:            r,
		sampleRate:   int(dec.SampleRate),
		channels:     channels,
		srcBitDepth:  bitDepth,
		srcFrameSize: srcFrameSize,
		totalBytes:   frames * int64(channels) * 2,
		pcmStart:     pcmStart,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}
	if d.pos >= d.totalBytes {
		return 0, io.EOF
	}

	width := d.srcBitDepth / 8
	samples := max(len(p)/2, 1)
	if remaining := int((d.totalBytes - d.pos) / 2); samples > remaining {
		samples = remaining
	}
	if cap(d.scratch) < samples*width {
		d.scratch = make([]byte, samples*width)
	}
	src := d.scratch[:samples*width]

	n, err := io.ReadFull(d.r, src)
	got := n / width
	if got == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, got*2)
	for i := range got {
		off := i * width
		var s int
		switch d.srcBitDepth {
		case 8:
			s = (int(src[off]) - 128) << 8 // 8-bit WAV is unsigned
		case 16:
			s = int(int16(binary.LittleEndian.Uint16(src[off:])))
		case 24:
			v := int32(src[off]) | int32(src[off+1])<<8 | int32(src[off+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			s = int(v >> 8)
		case 32:
			s = int(int32(binary.LittleEndian.Uint32(src[off:])) >> 16)
		}
		putSample(raw[i*2:], s)
	}

	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.emit(p, raw), err
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	next, err := clampPCM(d.pos, d.totalBytes, offset, whence)
	if err != nil {
		return d.pos, err
	}
	frame := next / (int64(d.channels) * 2)
	if _, err := d.r.Seek(d.pcmStart+frame*d.srcFrameSize, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = frame * int64(d.channels) * 2
	return d.pos, nil
}

func (d *wavDecoder) Length() int64     { return d.totalBytes }
func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }

// --- FLAC ---

type flacDecoder struct {
	pending
	stream     *flac.Stream
	totalBytes int64
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(r io.ReadSeeker) (*flacDecoder, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   channels,
		bps:        int(info.BitsPerSample),
		totalBytes: int64(info.NSamples) * int64(channels) * 2,
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	n := int(frame.Subframes[0].NSamples)
	raw := make([]byte, n*d.channels*2)
	for i := range n {
		for ch := range d.channels {
			s := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				s >>= d.bps - 16
			case d.bps < 16:
				s <<= 16 - d.bps
			}
			putSample(raw[(i*d.channels+ch)*2:], s)
		}
	}
	return d.emit(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	next, err := clampPCM(d.pos, d.totalBytes, offset, whence)
	if err != nil {
		return d.pos, err
	}
	frameSize := int64(d.channels) * 2
	sample, err := d.stream.Seek(uint64(next / frameSize))
	if err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = int64(sample) * frameSize
	return d.pos, nil
}

func (d *flacDecoder) Length() int64     { return d.totalBytes }
func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

// --- OGG Vorbis ---

type oggDecoder struct {
	pending
	reader     *oggvorbis.Reader
	totalBytes int64
	sampleRate int
	channels   int
	scratch    []float32
}

func newOGGDecoder(r io.ReadSeeker) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	return &oggDecoder{
		reader:     reader,
		sampleRate: reader.SampleRate(),
		channels:   channels,
		totalBytes: reader.Length() * int64(channels) * 2,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if len(d.buf) > 0 {
		return d.drain(p), nil
	}

	want := max(len(p)/2, d.channels)
	if cap(d.scratch) < want {
		d.scratch = make([]float32, want)
	}
	samples := d.scratch[:want]
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i := range n {
		s := max(-1, min(samples[i], 1))
		putSample(raw[i*2:], int(s*32767))
	}
	return d.emit(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	next, err := clampPCM(d.pos, d.totalBytes, offset, whence)
	if err != nil {
		return d.pos, err
	}
	frameSize := int64(d.channels) * 2
	if err := d.reader.SetPosition(next / frameSize); err != nil {
		return d.pos, err
	}
	d.buf = nil
	d.pos = next - next%frameSize
	return d.pos, nil
}

func (d *oggDecoder) Length() int64     { return d.totalBytes }
func (d *oggDecoder) SampleRate() int   { return d.sampleRate }
func (d *oggDecoder) ChannelCount() int { return d.channels }
