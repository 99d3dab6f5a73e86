package player

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	outputSampleRate = 44100
	outputChannels   = 2
	outputFrameSize  = outputChannels * 2
	bytesPerSec      = outputSampleRate * outputFrameSize
)

// pcmStream presents any Decoder as 44.1 kHz stereo s16le. Mono is
// duplicated to both channels; other rates are linearly interpolated.
type pcmStream struct {
	src         Decoder
	passthrough bool
	srcRate     int
	srcChannels int
	srcFrame    int // bytes per source frame

	totalOut int64 // output frames
	outPos   int64 // next output frame

	window []int16 // buffered source frames, always stereo
	base   int64   // source frame index of window[0]
	carry  []byte  // partial source frame from the last read
	eof    bool
	tmp    []byte
}

func newPCMStream(src Decoder) (*pcmStream, error) {
	rate := src.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("unsupported sample rate: %d", rate)
	}
	channels := src.ChannelCount()
	if channels < 1 || channels > outputChannels {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	s := &pcmStream{
		src:         src,
		passthrough: rate == outputSampleRate && channels == outputChannels,
		srcRate:     rate,
		srcChannels: channels,
		srcFrame:    channels * 2,
	}
	if length := src.Length(); length > 0 {
		srcFrames := length / int64(s.srcFrame)
		s.totalOut = srcFrames * outputSampleRate / int64(rate)
	}
	return s, nil
}

// Length is the output length in bytes, or -1 when the source is unsized.
func (s *pcmStream) Length() int64 {
	if s.totalOut <= 0 {
		return -1
	}
	return s.totalOut * outputFrameSize
}

func (s *pcmStream) Read(p []byte) (int, error) {
	if s.passthrough {
		n, err := s.src.Read(p)
		s.outPos += int64(n / outputFrameSize)
		return n, err
	}

	frames := len(p) / outputFrameSize
	written := 0
	for written < frames {
		pos := float64(s.outPos) * float64(s.srcRate) / outputSampleRate
		i0 := int64(pos)
		frac := pos - float64(i0)

		if err := s.fill(i0 + 1); err != nil && !s.has(i0) {
			if written == 0 {
				return 0, err
			}
			break
		}
		l0, r0 := s.frame(i0)
		l1, r1 := l0, r0
		if s.has(i0 + 1) {
			l1, r1 = s.frame(i0 + 1)
		}

		off := written * outputFrameSize
		binary.LittleEndian.PutUint16(p[off:], uint16(lerp(l0, l1, frac)))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(lerp(r0, r1, frac)))
		written++
		s.outPos++
		s.compact(i0)
	}
	return written * outputFrameSize, nil
}

func (s *pcmStream) has(frame int64) bool {
	rel := frame - s.base
	return rel >= 0 && rel*outputChannels+1 < int64(len(s.window))
}

func (s *pcmStream) frame(frame int64) (int16, int16) {
	off := (frame - s.base) * outputChannels
	return s.window[off], s.window[off+1]
}

// fill reads until frame is buffered. It returns io.EOF at the end of the
// source.
func (s *pcmStream) fill(frame int64) error {
	for !s.has(frame) {
		if s.eof {
			return io.EOF
		}
		if err := s.readChunk(); err != nil {
			if err == io.EOF {
				s.eof = true
				continue
			}
			return err
		}
	}
	return nil
}

func (s *pcmStream) readChunk() error {
	const chunkFrames = 2048
	size := chunkFrames * s.srcFrame
	if cap(s.tmp) < size {
		s.tmp = make([]byte, size)
	}
	n, err := s.src.Read(s.tmp[:size])
	data := append(s.carry, s.tmp[:n]...)
	whole := len(data) / s.srcFrame * s.srcFrame
	s.carry = append(s.carry[:0:0], data[whole:]...)

	for off := 0; off < whole; off += s.srcFrame {
		l := int16(binary.LittleEndian.Uint16(data[off:]))
		r := l
		if s.srcChannels == 2 {
			r = int16(binary.LittleEndian.Uint16(data[off+2:]))
		}
		s.window = append(s.window, l, r)
	}
	if n == 0 && err == nil {
		return io.EOF
	}
	if err != nil && whole > 0 && err != io.EOF {
		return nil
	}
	return err
}

// compact drops frames before keep.
func (s *pcmStream) compact(keep int64) {
	drop := keep - s.base
	if drop < 4096 {
		return
	}
	n := copy(s.window, s.window[drop*outputChannels:])
	s.window = s.window[:n]
	s.base = keep
}

func (s *pcmStream) Seek(offset int64, whence int) (int64, error) {
	length := s.Length()
	if length < 0 {
		return 0, fmt.Errorf("source is not seekable")
	}
	next, err := clampPCM(s.outPos*outputFrameSize, length, offset, whence)
	if err != nil {
		return s.outPos * outputFrameSize, err
	}
	outFrame := next / outputFrameSize

	if s.passthrough {
		pos, err := s.src.Seek(outFrame*outputFrameSize, io.SeekStart)
		if err != nil {
			return s.outPos * outputFrameSize, err
		}
		s.outPos = pos / outputFrameSize
		return pos, nil
	}

	srcFrame := outFrame * int64(s.srcRate) / outputSampleRate
	if _, err := s.src.Seek(srcFrame*int64(s.srcFrame), io.SeekStart); err != nil {
		return s.outPos * outputFrameSize, err
	}
	s.outPos = outFrame
	s.base = srcFrame
	s.window = s.window[:0]
	s.carry = s.carry[:0]
	s.eof = false
	return outFrame * outputFrameSize, nil
}

func lerp(a, b int16, t float64) int16 {
	if t == 0 || a == b {
		return a
	}
	return int16(float64(a) + (float64(b)-float64(a))*t)
}
