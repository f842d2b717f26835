package receiver

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uartrand/pkg/sample"
)

type frameRecorder struct {
	frames []*Frame
	lock   sync.Mutex
}

func (r *frameRecorder) HandleFrame(ctx context.Context, frame *Frame) {
	r.lock.Lock()
	r.frames = append(r.frames, frame)
	r.lock.Unlock()
}

func (r *frameRecorder) samples() []sample.Sample {
	r.lock.Lock()
	defer r.lock.Unlock()
	var samples []sample.Sample
	for _, f := range r.frames {
		if f.Valid() {
			samples = append(samples, f.Sample)
		}
	}
	return samples
}

// timeoutPort returns scripted chunks, an empty chunk is a read timeout.
type timeoutPort struct {
	chunks  []string
	timeout time.Duration
}

func (p *timeoutPort) SetReadTimeout(d time.Duration) error {
	p.timeout = d
	return nil
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := p.chunks[0]
	p.chunks = p.chunks[1:]
	return copy(b, chunk), nil
}

func TestReaderWithReadTimeout(t *testing.T) {
	port := &timeoutPort{chunks: []string{"5", "", "23", "", "", "10", "0", "", "4"}}
	rec := &frameRecorder{}
	r := NewReader(port, rec)
	r.IdleGap = 30 * time.Millisecond
	err := r.Run(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, 30*time.Millisecond, port.timeout)
	require.Equal(t, []sample.Sample{5, 23, 100, 4}, rec.samples())
}

func TestReaderWithTimer(t *testing.T) {
	pr, pw := io.Pipe()
	rec := &frameRecorder{}
	r := NewReader(pr, rec)
	r.IdleGap = 20 * time.Millisecond

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(context.Background())
	}()

	for _, chunk := range []string{"5", "23", "100"} {
		_, err := pw.Write([]byte(chunk))
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
	}
	_, err := pw.Write([]byte("7"))
	require.NoError(t, err)
	pw.Close()

	select {
	case err := <-errCh:
		require.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("reader not stopped")
	}
	require.Equal(t, []sample.Sample{5, 23, 100, 7}, rec.samples())
}

func TestReaderCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("reader not stopped")
	}
}

func TestStats(t *testing.T) {
	var stats Stats
	sum := stats.Summary()
	require.Zero(t, sum.Total)
	require.Equal(t, -1, sum.Min)
	require.Equal(t, -1, sum.Max)
	require.Equal(t, 1.0, sum.PValue)

	var framer Framer
	for _, in := range []string{"5", "100", "523", "0"} {
		for _, b := range []byte(in) {
			require.Nil(t, framer.Feed(b))
		}
		stats.HandleFrame(context.Background(), framer.Gap())
	}
	sum = stats.Summary()
	require.Equal(t, 3, sum.Total)
	require.Equal(t, 1, sum.BadFrame)
	require.Equal(t, 0, sum.Min)
	require.Equal(t, 100, sum.Max)
	require.InDelta(t, 35.0, sum.Mean, 1e-9)

	stats.Reset()
	require.Zero(t, stats.Summary().Total)
	require.Zero(t, stats.Summary().BadFrame)
}
