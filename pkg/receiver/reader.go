package receiver

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/golang/glog"
)

// DefaultIdleGap closes a frame when the line is silent that long.
const DefaultIdleGap = 200 * time.Millisecond

// FrameHandler is called for every Frame.
type FrameHandler interface {
	HandleFrame(context.Context, *Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, *Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// ReadTimeoutSetter is implemented by ports supporting read timeout,
// e.g. go.bug.st/serial.Port.
type ReadTimeoutSetter interface {
	SetReadTimeout(time.Duration) error
}

// Reader runs a Framer over a port.
type Reader struct {
	Port    io.Reader
	Handler FrameHandler
	IdleGap time.Duration

	framer Framer
}

// NewReader creates a Reader.
func NewReader(port io.Reader, handler FrameHandler) *Reader {
	return &Reader{Port: port, Handler: handler, IdleGap: DefaultIdleGap}
}

// Run implements Runnable. Read errors stop it, after flushing the
// pending frame.
func (r *Reader) Run(ctx context.Context) error {
	gap := r.IdleGap
	if gap <= 0 {
		gap = DefaultIdleGap
	}
	if setter, ok := r.Port.(ReadTimeoutSetter); ok {
		if err := setter.SetReadTimeout(gap); err == nil {
			return r.runWithReadTimeout(ctx)
		}
	}
	return r.runWithTimer(ctx, gap)
}

// runWithReadTimeout relies on Read returning no bytes when the timeout
// expires.
func (r *Reader) runWithReadTimeout(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := r.Port.Read(buf)
		if err != nil && os.IsTimeout(err) {
			n, err = 0, nil
		}
		for _, b := range buf[:n] {
			r.dispatch(ctx, r.framer.Feed(b))
		}
		if n == 0 {
			r.dispatch(ctx, r.framer.Gap())
		}
		if err != nil {
			r.dispatch(ctx, r.framer.Gap())
			return err
		}
	}
}

func (r *Reader) runWithTimer(ctx context.Context, gap time.Duration) error {
	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go r.readLoop(subCtx, chunkCh, errCh)
	var gapTimer <-chan time.Time
	for {
		select {
		case chunk := <-chunkCh:
			for _, b := range chunk {
				r.dispatch(ctx, r.framer.Feed(b))
			}
			if r.framer.Pending() > 0 {
				gapTimer = time.After(gap)
			} else {
				gapTimer = nil
			}
		case <-gapTimer:
			gapTimer = nil
			r.dispatch(ctx, r.framer.Gap())
		case err := <-errCh:
			r.dispatch(ctx, r.framer.Gap())
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reader) readLoop(ctx context.Context, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, 64)
		n, err := r.Port.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (r *Reader) dispatch(ctx context.Context, frame *Frame) {
	if frame == nil {
		return
	}
	if !frame.Valid() {
		glog.V(1).Infof("%v", frame.Err)
	}
	if h := r.Handler; h != nil {
		h.HandleFrame(ctx, frame)
	}
}
