package audiograph

import (
	"encoding/binary"
	"io"
)

// DefaultFFTSize is the analysis window, in frames.
const DefaultFFTSize = 256

// Analyser sits between the playback element and the output. Everything
// the output pulls through it is downmixed to mono and kept in a window
// of the most recent FFTSize frames.
type Analyser struct {
	src     io.Reader
	fftSize int
	ring    *ring
	mono    []float32
}

func newAnalyser(src io.Reader, fftSize int) *Analyser {
	if fftSize <= 0 {
		fftSize = DefaultFFTSize
	}
	return &Analyser{
		src:     src,
		fftSize: fftSize,
		ring:    newRing(fftSize),
	}
}

// FFTSize returns the analysis window length in frames.
func (a *Analyser) FFTSize() int { return a.fftSize }

// Read forwards to the source and taps the s16le stereo PCM it yields.
func (a *Analyser) Read(p []byte) (int, error) {
	n, err := a.src.Read(p)
	frames := n / 4
	if frames > 0 {
		if cap(a.mono) < frames {
			a.mono = make([]float32, frames)
		}
		mono := a.mono[:frames]
		for i := range mono {
			l := int16(binary.LittleEndian.Uint16(p[i*4:]))
			r := int16(binary.LittleEndian.Uint16(p[i*4+2:]))
			mono[i] = (float32(l) + float32(r)) / 65536
		}
		a.ring.write(mono)
	}
	return n, err
}

// TimeDomain fills dst with the latest samples in [-1, 1], oldest first,
// and returns the count written.
func (a *Analyser) TimeDomain(dst []float32) int {
	return a.ring.latest(dst)
}

// Reset drops buffered samples.
func (a *Analyser) Reset() {
	a.ring.clear()
}
