package receiver

import (
	"errors"
	"fmt"

	"github.com/robotalks/uartrand/pkg/sample"
)

// maxBurst bounds the bytes kept from a single burst.
const maxBurst = 16

// ErrBadFrame indicates a burst doesn't decode into a sample.
var ErrBadFrame = errors.New("bad frame")

// Frame is a burst closed by a gap or a delimiter.
type Frame struct {
	Raw    []byte
	Sample sample.Sample
	Err    error
}

// Valid reports whether the frame carries a sample.
func (f *Frame) Valid() bool {
	return f.Err == nil
}

// Framer splits the byte stream into Frames.
// The zero value is ready to use.
type Framer struct {
	buf       [maxBurst]byte
	n         int
	truncated bool
}

// Feed consumes a byte and returns a Frame if the byte closed one.
func (f *Framer) Feed(b byte) *Frame {
	if b >= '0' && b <= '9' {
		if f.n < len(f.buf) {
			f.buf[f.n] = b
			f.n++
		} else {
			f.truncated = true
		}
		return nil
	}
	return f.flush()
}

// Gap is called when the line has been idle for the gap duration.
// It returns the pending Frame if any.
func (f *Framer) Gap() *Frame {
	return f.flush()
}

// Pending returns the number of bytes buffered.
func (f *Framer) Pending() int {
	return f.n
}

// Reset drops buffered bytes.
func (f *Framer) Reset() {
	f.n, f.truncated = 0, false
}

func (f *Framer) flush() *Frame {
	if f.n == 0 && !f.truncated {
		return nil
	}
	frame := &Frame{Raw: append([]byte(nil), f.buf[:f.n]...)}
	if f.truncated {
		frame.Err = fmt.Errorf("%w: burst longer than %d bytes", ErrBadFrame, maxBurst)
	} else if v, err := sample.Decode(frame.Raw); err != nil {
		frame.Err = fmt.Errorf("%w %q: %v", ErrBadFrame, frame.Raw, err)
	} else {
		frame.Sample = v
	}
	f.Reset()
	return frame
}
