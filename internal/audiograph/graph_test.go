package audiograph

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

type stubOutput struct{ plays int }

func (o *stubOutput) Play() { o.plays++ }

type stubContext struct {
	outputs   []*stubOutput
	readers   []io.Reader
	suspends  int
	resumes   int
	resumeErr error
}

func (c *stubContext) NewOutput(r io.Reader) Output {
	out := &stubOutput{}
	c.outputs = append(c.outputs, out)
	c.readers = append(c.readers, r)
	return out
}

func (c *stubContext) Suspend() error { c.suspends++; return nil }
func (c *stubContext) Resume() error  { c.resumes++; return c.resumeErr }

func factoryFor(ctx *stubContext, builds *int) ContextFactory {
	return func() (Context, error) {
		*builds++
		return ctx, nil
	}
}

func TestEnsureConnectsOnce(t *testing.T) {
	ctx := &stubContext{}
	builds := 0
	g := New(factoryFor(ctx, &builds), Options{})
	el := bytes.NewReader(nil)

	a1 := g.Ensure(el)
	a2 := g.Ensure(el)
	a3 := g.Ensure(bytes.NewReader(nil))
	if a1 == nil {
		t.Fatal("expected analyser")
	}
	if a1 != a2 || a1 != a3 {
		t.Fatal("expected the same analyser on every call")
	}
	if builds != 1 {
		t.Fatalf("expected one context, got %d", builds)
	}
	if len(ctx.outputs) != 1 || ctx.outputs[0].plays != 1 {
		t.Fatalf("expected one started output, got %d", len(ctx.outputs))
	}
	if ctx.readers[0] != io.Reader(a1) {
		t.Fatal("expected output to pull through the analyser")
	}
	if a1.FFTSize() != DefaultFFTSize {
		t.Fatalf("expected fft size %d, got %d", DefaultFFTSize, a1.FFTSize())
	}
}

func TestEnsureFailureIsNotRetried(t *testing.T) {
	builds := 0
	g := New(func() (Context, error) {
		builds++
		return nil, errors.New("no device")
	}, Options{})

	if a := g.Ensure(bytes.NewReader(nil)); a != nil {
		t.Fatal("expected nil analyser on failure")
	}
	if a := g.Ensure(bytes.NewReader(nil)); a != nil {
		t.Fatal("expected nil analyser on retry")
	}
	if builds != 1 {
		t.Fatalf("expected one attempt, got %d", builds)
	}
	g.Interact()
	if g.Connected() {
		t.Fatal("expected graph to stay disconnected")
	}
}

func TestInteractResumesExactlyOnce(t *testing.T) {
	ctx := &stubContext{resumeErr: errors.New("not allowed")}
	builds := 0
	g := New(factoryFor(ctx, &builds), Options{StartSuspended: true})

	g.Interact() // before construction: nothing to resume
	g.Ensure(bytes.NewReader(nil))
	if !g.Suspended() || ctx.suspends != 1 {
		t.Fatal("expected suspended device")
	}
	g.Interact()
	g.Interact()
	if ctx.resumes != 1 {
		t.Fatalf("expected one resume attempt, got %d", ctx.resumes)
	}
	if !g.Suspended() {
		t.Fatal("expected device to stay suspended after failed resume")
	}
}

func TestInteractWithoutSuspendIsNoop(t *testing.T) {
	ctx := &stubContext{}
	builds := 0
	g := New(factoryFor(ctx, &builds), Options{})
	g.Ensure(bytes.NewReader(nil))
	g.Interact()
	if ctx.resumes != 0 {
		t.Fatalf("expected no resume, got %d", ctx.resumes)
	}
}

func stereo(frames ...[2]int16) []byte {
	out := make([]byte, len(frames)*4)
	for i, f := range frames {
		binary.LittleEndian.PutUint16(out[i*4:], uint16(f[0]))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(f[1]))
	}
	return out
}

func TestAnalyserTapsDownmixedWindow(t *testing.T) {
	src := bytes.NewReader(stereo(
		[2]int16{16384, 16384},
		[2]int16{-16384, -16384},
		[2]int16{32767, -32768},
		[2]int16{8192, 0},
	))
	a := newAnalyser(src, 3)

	buf := make([]byte, 16)
	n, err := a.Read(buf)
	if err != nil || n != 16 {
		t.Fatalf("Read = %d, %v", n, err)
	}

	dst := make([]float32, 8)
	got := a.TimeDomain(dst)
	if got != 3 {
		t.Fatalf("expected window of 3, got %d", got)
	}
	want := []float32{-0.5, 0, 0.125}
	for i, w := range want {
		if d := dst[i] - w; d > 0.001 || d < -0.001 {
			t.Fatalf("sample %d: expected %v, got %v", i, w, dst[i])
		}
	}

	a.Reset()
	if got := a.TimeDomain(dst); got != 0 {
		t.Fatalf("expected empty window after reset, got %d", got)
	}
}
