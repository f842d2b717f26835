package mirror

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/uartrand/pkg/framework"
	"github.com/robotalks/uartrand/pkg/sample"
)

// DefaultWebSocketPath is where samples are streamed.
const DefaultWebSocketPath = "/samples"

// WebSocket streams the text form of samples to connected clients, one
// message per sample. A client which can't keep up is disconnected.
type WebSocket struct {
	Addr      string
	Path      string
	QueueSize int

	lock    sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	ch chan string
}

// NewWebSocket creates a WebSocket mirror listening on addr.
func NewWebSocket(addr string) *WebSocket {
	return &WebSocket{Addr: addr, Path: DefaultWebSocketPath, QueueSize: 8}
}

// Name implements Named.
func (w *WebSocket) Name() string {
	return "websocket"
}

// Handler returns the http.Handler serving websocket clients.
func (w *WebSocket) Handler() http.Handler {
	return websocket.Handler(w.serve)
}

// Clients returns the number of connected clients.
func (w *WebSocket) Clients() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return len(w.clients)
}

// Run implements Runnable.
func (w *WebSocket) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(w.Path, w.Handler())
	server := &http.Server{Addr: w.Addr, Handler: mux}
	glog.Infof("websocket listening on %s%s", w.Addr, w.Path)
	err := fx.RunWithContextCancel(ctx, func() {
		server.Close()
		w.closeAll()
	}, server.ListenAndServe)
	if err != nil && !errors.Is(err, ctx.Err()) && !errors.Is(err, http.ErrServerClosed) {
		glog.Errorf("websocket server error: %v", err)
	}
	return err
}

// MirrorSample implements Mirror.
func (w *WebSocket) MirrorSample(ctx context.Context, s sample.Sample, at time.Time) error {
	msg := s.String()
	w.lock.Lock()
	defer w.lock.Unlock()
	for c := range w.clients {
		select {
		case c.ch <- msg:
		default:
			glog.Warning("websocket client too slow, dropped")
			delete(w.clients, c)
			close(c.ch)
		}
	}
	return nil
}

func (w *WebSocket) serve(conn *websocket.Conn) {
	defer conn.Close()
	size := w.QueueSize
	if size <= 0 {
		size = 1
	}
	c := &wsClient{ch: make(chan string, size)}
	w.lock.Lock()
	if w.clients == nil {
		w.clients = make(map[*wsClient]struct{})
	}
	w.clients[c] = struct{}{}
	w.lock.Unlock()
	glog.V(1).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	for msg := range c.ch {
		if err := websocket.Message.Send(conn, msg); err != nil {
			glog.V(1).Infof("websocket client %s: %v", conn.Request().RemoteAddr, err)
			break
		}
	}
	w.remove(c)
}

func (w *WebSocket) remove(c *wsClient) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if _, ok := w.clients[c]; ok {
		delete(w.clients, c)
		close(c.ch)
	}
}

func (w *WebSocket) closeAll() {
	w.lock.Lock()
	defer w.lock.Unlock()
	for c := range w.clients {
		close(c.ch)
	}
	w.clients = nil
}
