package emitter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/uartrand/pkg/framework"
	"github.com/robotalks/uartrand/pkg/mirror"
	"github.com/robotalks/uartrand/pkg/sample"
)

type testPort struct {
	writes [][]byte
	times  []time.Time
	err    error
	short  bool
	lock   sync.Mutex
}

func (p *testPort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	p.writes = append(p.writes, append([]byte(nil), b...))
	p.times = append(p.times, time.Now())
	if p.short {
		return len(b) - 1, nil
	}
	return len(b), nil
}

func (p *testPort) stream() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return string(bytes.Join(p.writes, nil))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("console gone")
}

type scriptedSampler []sample.Sample

func (s *scriptedSampler) Next() sample.Sample {
	v := (*s)[0]
	*s = (*s)[1:]
	return v
}

type testControlContext struct {
	index uint64
}

func (c *testControlContext) Context() context.Context { return context.Background() }
func (c *testControlContext) Time() time.Time          { return time.Unix(1700000000, 0) }
func (c *testControlContext) Iteration() uint64        { return c.index }

func runIterations(t *testing.T, e *Emitter, n int) {
	for i := 0; i < n; i++ {
		require.NoError(t, e.Control(&testControlContext{index: uint64(i)}))
	}
}

func TestEmitUndelimited(t *testing.T) {
	port := &testPort{}
	var console bytes.Buffer
	e := NewEmitter(port, &console, &scriptedSampler{5, 23, 0, 100})
	runIterations(t, e, 4)
	require.Equal(t, [][]byte{[]byte("5"), []byte("23"), []byte("0"), []byte("100")}, port.writes)
	require.Equal(t, "5230100", port.stream())
	require.Equal(t, "5\n23\n0\n100\n", console.String())
	require.Equal(t, uint64(4), e.Count())
}

func TestEmitDelimited(t *testing.T) {
	port := &testPort{}
	var console bytes.Buffer
	e := (&Config{Delimiter: "\r\n"}).NewEmitter(port, &console, &scriptedSampler{5, 23})
	runIterations(t, e, 2)
	require.Equal(t, "5\r\n23\r\n", port.stream())
	require.Equal(t, "5\n23\n", console.String())
}

func TestEmitSerialMatchesConsole(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("serial text equals console text", prop.ForAll(
		func(seed int64) bool {
			port := &testPort{}
			var console bytes.Buffer
			e := NewEmitter(port, &console, sample.NewSeeded(seed))
			for i := 0; i < 20; i++ {
				if e.Control(&testControlContext{index: uint64(i)}) != nil {
					return false
				}
			}
			lines := strings.Split(strings.TrimSuffix(console.String(), "\n"), "\n")
			if len(lines) != len(port.writes) {
				return false
			}
			for n, w := range port.writes {
				if string(w) != lines[n] {
					return false
				}
				if v, err := sample.Decode(w); err != nil || !v.Valid() {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))
	properties.TestingRun(t)
}

func TestEmitSerialError(t *testing.T) {
	errPort := errors.New("port closed")
	var console bytes.Buffer
	e := NewEmitter(&testPort{err: errPort}, &console, &scriptedSampler{42})
	err := e.Control(&testControlContext{})
	require.Error(t, err)
	var we *WriteError
	require.True(t, errors.As(err, &we))
	require.Equal(t, "serial", we.Target)
	require.Equal(t, sample.Sample(42), we.Sample)
	require.True(t, errors.Is(err, errPort))
	require.Zero(t, e.Count())
	require.Empty(t, console.String())
}

func TestEmitShortWrite(t *testing.T) {
	e := NewEmitter(&testPort{short: true}, nil, &scriptedSampler{42})
	err := e.Control(&testControlContext{})
	require.True(t, errors.Is(err, io.ErrShortWrite))
}

func TestEmitIgnoresConsoleAndMirrorErrors(t *testing.T) {
	port := &testPort{}
	var mirrored []sample.Sample
	e := NewEmitter(port, failWriter{}, &scriptedSampler{1, 2})
	e.Mirrors = []mirror.Mirror{
		mirror.Func(func(ctx context.Context, s sample.Sample, at time.Time) error {
			return errors.New("broker down")
		}),
		mirror.Func(func(ctx context.Context, s sample.Sample, at time.Time) error {
			require.Equal(t, time.Unix(1700000000, 0), at)
			mirrored = append(mirrored, s)
			return nil
		}),
	}
	runIterations(t, e, 2)
	require.Equal(t, "12", port.stream())
	require.Equal(t, []sample.Sample{1, 2}, mirrored)
}

type runnableMirror struct {
	mirror.Func
	ran chan struct{}
}

func (m *runnableMirror) Run(ctx context.Context) error {
	close(m.ran)
	<-ctx.Done()
	return ctx.Err()
}

func TestEmitInLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("takes a few seconds")
	}
	const iterations = 3
	port := &testPort{}
	var console bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := &runnableMirror{ran: make(chan struct{})}
	m.Func = func(ctx context.Context, s sample.Sample, at time.Time) error {
		if len(port.writes) == iterations {
			cancel()
		}
		return nil
	}
	e := NewEmitter(port, &console, sample.NewGenerator())
	e.Mirrors = []mirror.Mirror{m}
	loop := fx.NewLoop().Add(e)
	require.Equal(t, Interval, loop.Interval)

	require.Equal(t, context.Canceled, loop.Run(ctx))
	<-m.ran
	require.Len(t, port.writes, iterations)
	for n := 1; n < iterations; n++ {
		gap := port.times[n].Sub(port.times[n-1])
		require.InDelta(t, float64(time.Second), float64(gap), float64(50*time.Millisecond), "gap %d: %v", n, gap)
	}
}
