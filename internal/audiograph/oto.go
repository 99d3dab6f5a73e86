package audiograph

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

type otoContext struct {
	ctx *oto.Context
}

// NewOtoFactory returns a factory for an s16le oto device.
func NewOtoFactory(sampleRate, channels int) ContextFactory {
	return func() (Context, error) {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   60 * time.Millisecond,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("opening audio device: %w", err)
		}
		<-ready
		return &otoContext{ctx: ctx}, nil
	}
}

func (c *otoContext) NewOutput(r io.Reader) Output {
	return c.ctx.NewPlayer(r)
}

func (c *otoContext) Suspend() error { return c.ctx.Suspend() }
func (c *otoContext) Resume() error  { return c.ctx.Resume() }
