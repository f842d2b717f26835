// Package mon provides an ishell backed monitor for the receiving end of
// the serial line.
package mon

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/uartrand/pkg/framework"
	"github.com/robotalks/uartrand/pkg/receiver"
	"github.com/robotalks/uartrand/pkg/uart"
)

const (
	monitorKey     = "$monitor"
	closedPrompt   = "[closed] > "
	defaultWatchN  = 10
	watchTimeoutIn = 3 * time.Second
)

var (
	// flags

	evalOnly    bool
	outputJSON  bool
	openOnStart bool

	// commands
	commands = []*ishell.Cmd{
		&DevicesCmd,
		&OpenCmd,
		&CloseCmd,
		&WatchCmd,
		&StatsCmd,
		&ResetCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&openOnStart, "open", openOnStart, "Open the device on start.")
}

// Monitor is the shell and the state of the open port.
type Monitor struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool
	// WatchTimeout bounds the wait for each watched frame.
	WatchTimeout time.Duration

	Shell  *ishell.Shell
	Config *uart.Config
	Stats  receiver.Stats
	// OpenPort acquires the port, defaults to uart.Config.Open.
	OpenPort func(*uart.Config) (uart.Port, error)

	conn    *portConn
	watchCh chan *receiver.Frame
	lock    sync.Mutex
}

type portConn struct {
	device string
	cancel func()
	done   chan struct{}
}

// FrameJSON is the JSON form of a received frame.
type FrameJSON struct {
	Raw    string `json:"raw"`
	Sample *int   `json:"sample,omitempty"`
	Error  string `json:"error,omitempty"`
}

// New creates a Monitor.
func New(conf *uart.Config) *Monitor {
	m := &Monitor{
		Interactive:  !evalOnly,
		OutputJSON:   outputJSON,
		AutoOpen:     openOnStart,
		WatchTimeout: watchTimeoutIn,

		Shell:  ishell.New(),
		Config: conf,
	}
	m.Shell.Set(monitorKey, m)
	m.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		m.Shell.AddCmd(cmd)
	}
	return m
}

// MonitorFrom gets Monitor from ishell context.
func MonitorFrom(c *ishell.Context) *Monitor {
	return c.Get(monitorKey).(*Monitor)
}

// HandleFrame implements receiver.FrameHandler.
func (m *Monitor) HandleFrame(ctx context.Context, frame *receiver.Frame) {
	m.Stats.HandleFrame(ctx, frame)
	m.lock.Lock()
	ch := m.watchCh
	m.lock.Unlock()
	if ch != nil {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Open opens the device and starts receiving. The port already open is
// closed first as the device is opened exclusively.
func (m *Monitor) Open(device string) error {
	conf := *m.Config
	if device != "" {
		conf.Device = device
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	m.Close()
	openPort := m.OpenPort
	if openPort == nil {
		openPort = (*uart.Config).Open
	}
	port, err := openPort(&conf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &portConn{device: conf.Device, cancel: cancel, done: make(chan struct{})}
	reader := receiver.NewReader(port, m)
	go func() {
		defer close(conn.done)
		err := fx.RunWithContextCloser(ctx, port, func() error {
			return reader.Run(ctx)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s: receiver stopped: %v", conn.device, err)
		}
	}()

	m.lock.Lock()
	m.conn = conn
	m.lock.Unlock()
	m.setPrompt(fmt.Sprintf("[%s] > ", conf.Device))
	return nil
}

// Close stops receiving and closes the port.
func (m *Monitor) Close() {
	m.lock.Lock()
	conn := m.conn
	m.conn = nil
	m.lock.Unlock()
	if conn == nil {
		return
	}
	conn.cancel()
	<-conn.done
	m.setPrompt(closedPrompt)
}

func (m *Monitor) setPrompt(prompt string) {
	if m.Shell != nil {
		m.Shell.SetPrompt(prompt)
	}
}

// IsOpen tells whether a port is open.
func (m *Monitor) IsOpen() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.conn != nil
}

// Watch collects the next n frames, it fails if no frame arrives within
// WatchTimeout.
func (m *Monitor) Watch(n int, fn func(*receiver.Frame)) error {
	ch := make(chan *receiver.Frame, n)
	m.lock.Lock()
	m.watchCh = ch
	m.lock.Unlock()
	defer func() {
		m.lock.Lock()
		m.watchCh = nil
		m.lock.Unlock()
	}()
	for i := 0; i < n; i++ {
		select {
		case frame := <-ch:
			fn(frame)
		case <-time.After(m.WatchTimeout):
			return fmt.Errorf("no data in %v", m.WatchTimeout)
		}
	}
	return nil
}

// Run runs the shell.
func (m *Monitor) Run(args ...string) {
	if m.AutoOpen {
		if err := m.Open(""); err != nil {
			log.Fatalf("open %q failed: %v", m.Config.Device, err)
		}
	}
	defer m.Close()

	if len(args) > 0 {
		if err := m.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if m.Interactive {
		m.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// MustBeOpen wraps command func requires an open port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !MonitorFrom(c).IsOpen() {
			c.Err(fmt.Errorf("not open"))
			return
		}
		fn(c)
	}
}

// FormatFrame prints a frame for display.
func FormatFrame(frame *receiver.Frame, asJSON bool) string {
	if asJSON {
		out := FrameJSON{Raw: string(frame.Raw)}
		if frame.Valid() {
			v := int(frame.Sample)
			out.Sample = &v
		} else {
			out.Error = frame.Err.Error()
		}
		b, _ := json.Marshal(&out)
		return string(b)
	}
	if frame.Valid() {
		return frame.Sample.String()
	}
	return fmt.Sprintf("! %v", frame.Err)
}

// FormatSummary prints statistics for display.
func FormatSummary(sum receiver.Summary, asJSON bool) string {
	if asJSON {
		b, _ := json.Marshal(&sum)
		return string(b)
	}
	if sum.Total == 0 {
		return fmt.Sprintf("no samples, %d bad frames", sum.BadFrame)
	}
	return fmt.Sprintf("samples=%d bad=%d min=%d max=%d mean=%.2f chi2=%.2f p=%.4f",
		sum.Total, sum.BadFrame, sum.Min, sum.Max, sum.Mean, sum.ChiSq, sum.PValue)
}

var (
	// DevicesCmd lists serial devices.
	DevicesCmd = ishell.Cmd{
		Name:    "devices",
		Aliases: []string{"ls"},
		Help:    "list serial devices",
		Func: func(c *ishell.Context) {
			devices, err := uart.Devices()
			if err != nil {
				c.Err(err)
				return
			}
			if len(devices) == 0 {
				c.Println("No devices found")
				return
			}
			for _, dev := range devices {
				c.Println(dev)
			}
		},
	}

	// OpenCmd opens a device.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if err := MonitorFrom(c).Open(device); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the device.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "close the device",
		Func: func(c *ishell.Context) {
			MonitorFrom(c).Close()
		},
	}

	// WatchCmd prints received samples.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[N] print next N samples",
		Func: MustBeOpen(func(c *ishell.Context) {
			n := defaultWatchN
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				n = val
			}
			m := MonitorFrom(c)
			err := m.Watch(n, func(frame *receiver.Frame) {
				c.Println(FormatFrame(frame, m.OutputJSON))
			})
			if err != nil {
				c.Err(err)
			}
		}),
	}

	// StatsCmd prints statistics of received samples.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"s"},
		Help:    "print statistics of received samples",
		Func: func(c *ishell.Context) {
			m := MonitorFrom(c)
			c.Println(FormatSummary(m.Stats.Summary(), m.OutputJSON))
		},
	}

	// ResetCmd clears statistics.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "clear statistics",
		Func: func(c *ishell.Context) {
			MonitorFrom(c).Stats.Reset()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(uart.NewConfig()).Run(flag.Args()...)
}
