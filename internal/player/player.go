package player

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olivier-w/pooldeck/internal/source"
)

// Player is the deck's single playback element. It is created once and
// routed into the audio graph once; loading a track swaps the PCM source
// behind it without touching the routing.
//
// Read never returns an error while the player is open: when nothing is
// loaded, the track is paused or has ended it yields silence so the output
// keeps pulling from it.
type Player struct {
	fetcher *source.Fetcher

	mu       sync.Mutex
	res      *source.Resource
	stream   *pcmStream
	ref      string
	duration time.Duration
	pos      int64 // output bytes delivered
	volume   float64
	paused   bool
	ended    bool
	seq      uint64
	done     chan struct{}
	closed   bool
}

// New creates an idle player at the given volume.
func New(fetcher *source.Fetcher, volume float64) *Player {
	if fetcher == nil {
		fetcher = &source.Fetcher{}
	}
	return &Player{
		fetcher: fetcher,
		volume:  clampVolume(volume),
		done:    make(chan struct{}),
	}
}

// Load opens ref and makes it the playing track. The previous track is
// released. It returns the load sequence number used to tell Done
// notifications of different tracks apart.
func (p *Player) Load(ctx context.Context, ref string) (uint64, error) {
	res, err := p.fetcher.Open(ctx, ref)
	if err != nil {
		return 0, err
	}
	dec, err := NewDecoder(res.Data, res.Format)
	if err != nil {
		res.Close()
		return 0, err
	}
	stream, err := newPCMStream(dec)
	if err != nil {
		res.Close()
		return 0, err
	}

	var dur time.Duration
	if length := stream.Length(); length > 0 {
		dur = time.Duration(float64(length) / bytesPerSec * float64(time.Second))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		res.Close()
		return 0, fmt.Errorf("player is closed")
	}
	if p.res != nil {
		p.res.Close()
	}
	if !p.ended {
		close(p.done) // wake waiters on the previous track
	}
	p.res = res
	p.stream = stream
	p.ref = ref
	p.duration = dur
	p.pos = 0
	p.paused = false
	p.ended = false
	p.seq++
	p.done = make(chan struct{})
	return p.seq, nil
}

// Read implements io.Reader for the output graph.
func (p *Player) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.EOF
	}
	n := len(b) - len(b)%outputFrameSize
	if n == 0 {
		return 0, nil
	}
	if p.stream == nil || p.paused || p.ended {
		clear(b[:n])
		return n, nil
	}

	got, err := p.stream.Read(b[:n])
	applyGain(b[:got], p.volume)
	p.pos += int64(got)
	if err != nil || got == 0 {
		p.ended = true
		close(p.done)
	}
	clear(b[got:n])
	return n, nil
}

func applyGain(pcm []byte, gain float64) {
	if gain >= 1 {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(float64(s)*gain)))
	}
}

// Done returns the load sequence and a channel closed when that track ends
// or is replaced. Compare the sequence to tell the two apart.
func (p *Player) Done() (uint64, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq, p.done
}

// Ref returns the loaded reference.
func (p *Player) Ref() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ref
}

// Playing reports whether a track is loaded, not paused and not finished.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil && !p.paused && !p.ended
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	p.mu.Lock()
	p.paused = !p.paused
	p.mu.Unlock()
}

// Pause stops playback without toggling.
func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	p.mu.Unlock()
}

// Paused returns whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Duration(float64(p.pos) / bytesPerSec * float64(time.Second))
}

// Duration returns the total duration of the loaded track.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// Progress returns position/duration in [0, 1].
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.duration <= 0 {
		return 0
	}
	total := float64(p.duration) / float64(time.Second) * bytesPerSec
	return max(0, min(float64(p.pos)/total, 1))
}

// SeekTo moves playback to target, clamped to the track and aligned to a
// frame boundary.
func (p *Player) SeekTo(target time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}
	length := p.stream.Length()
	if length < 0 {
		return fmt.Errorf("track is not seekable")
	}

	off := seekOffset(target, length)
	pos, err := p.stream.Seek(off, io.SeekStart)
	if err != nil {
		return fmt.Errorf("seeking: %w", err)
	}
	p.pos = pos
	if p.ended {
		p.ended = false
		p.done = make(chan struct{})
	}
	return nil
}

// SeekFraction seeks to frac of the track duration.
func (p *Player) SeekFraction(frac float64) error {
	frac = max(0, min(frac, 1))
	return p.SeekTo(time.Duration(frac * float64(p.Duration())))
}

// SeekBy moves playback by delta from the current position.
func (p *Player) SeekBy(delta time.Duration) error {
	return p.SeekTo(p.Position() + delta)
}

func seekOffset(target time.Duration, length int64) int64 {
	off := int64(target.Seconds() * bytesPerSec)
	off = max(0, min(off, length))
	return off - off%outputFrameSize
}

// Volume returns the current volume (0.0 to 1.0).
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume, clamped to 0.0 - 1.0.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = clampVolume(v)
	p.mu.Unlock()
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.mu.Lock()
	p.volume = clampVolume(p.volume + delta)
	p.mu.Unlock()
}

func clampVolume(v float64) float64 {
	return max(0, min(v, 1))
}

// Close releases the loaded track. Subsequent reads report io.EOF.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if !p.ended {
		p.ended = true
		close(p.done)
	}
	if p.res != nil {
		p.res.Close()
		p.res = nil
	}
	p.stream = nil
}
