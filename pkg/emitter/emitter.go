// Package emitter writes one random sample per second to the serial line
// and mirrors it to the console.
package emitter

import (
	"fmt"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/uartrand/pkg/framework"
	"github.com/robotalks/uartrand/pkg/mirror"
	"github.com/robotalks/uartrand/pkg/sample"
)

// Sampler draws samples.
type Sampler interface {
	Next() sample.Sample
}

// WriteError is returned when a sample can't be written to Target.
type WriteError struct {
	Target string
	Sample sample.Sample
	Err    error
}

// Error implements error.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write sample %d to %s: %v", e.Sample, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Emitter is the controller producing samples.
// Only a serial write failure stops it, console and mirror failures are
// logged and ignored.
type Emitter struct {
	Port      io.Writer
	Console   io.Writer
	Sampler   Sampler
	Delimiter []byte
	Mirrors   []mirror.Mirror

	count uint64
	buf   []byte
}

// NewEmitter creates an Emitter.
func NewEmitter(port, console io.Writer, gen Sampler) *Emitter {
	return &Emitter{Port: port, Console: console, Sampler: gen}
}

// Count returns the number of samples written to serial.
func (e *Emitter) Count() uint64 {
	return e.count
}

// AddToLoop implements LoopAdder.
func (e *Emitter) AddToLoop(loop *fx.Loop) {
	loop.Interval = Interval
	loop.AddController(e)
	for _, m := range e.Mirrors {
		if runnable, ok := m.(fx.Runnable); ok {
			loop.AddRunnable(runnable)
		}
	}
}

// Control implements Controller.
func (e *Emitter) Control(cc fx.ControlContext) error {
	v := e.Sampler.Next()
	e.buf = sample.AppendEncode(e.buf[:0], v)
	textLen := len(e.buf)
	e.buf = append(e.buf, e.Delimiter...)

	n, err := e.Port.Write(e.buf)
	if err == nil && n < len(e.buf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &WriteError{Target: "serial", Sample: v, Err: err}
	}
	e.count++

	if e.Console != nil {
		line := append(e.buf[:textLen:textLen], '\n')
		if _, err := e.Console.Write(line); err != nil {
			glog.Warningf("console: %v", err)
		}
	}
	for _, m := range e.Mirrors {
		if err := m.MirrorSample(cc.Context(), v, cc.Time()); err != nil {
			glog.Warningf("mirror: %v", err)
		}
	}
	glog.V(2).Infof("sample[%d] = %d", cc.Iteration(), v)
	return nil
}
