// Package wshandler pushes record changes to websocket clients.
package wshandler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"
)

// Frame is a single change notification sent to clients.
type Frame struct {
	Collection string          `json:"collection"`
	Action     string          `json:"action"`
	Record     json.RawMessage `json:"record"`
}

func NewFrame(collection, action string, record any) (*Frame, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	return &Frame{Collection: collection, Action: action, Record: b}, nil
}

type JSONWsHandler struct {
	log     *slog.Logger
	name    string
	ws      *websocket.Conn
	ch      chan *Frame
	// done is closed by stop; ch is never closed so Send can't panic.
	done    chan struct{}
	active  int32
	dropped atomic.Int64
}

func NewHandler(log *slog.Logger, name string, ws *websocket.Conn) *JSONWsHandler {
	return &JSONWsHandler{
		log:    log.With("client", name),
		name:   name,
		ws:     ws,
		ch:     make(chan *Frame, 50),
		done:   make(chan struct{}),
		active: 1,
	}
}

func (w *JSONWsHandler) Name() string {
	return w.name
}

func (w *JSONWsHandler) IsActive() bool {
	return w != nil && atomic.LoadInt32(&w.active) == 1
}

func (w *JSONWsHandler) stop() {
	if atomic.CompareAndSwapInt32(&w.active, 1, 0) {
		close(w.done)

		if w.ws != nil {
			w.ws.Close()
		}
	}
}

func (w *JSONWsHandler) writer() {
	for {
		select {
		case <-w.done:
			return
		case item := <-w.ch:
			if item == nil {
				continue
			}

			if err := w.ws.WriteJSON(item); err != nil {
				w.log.Debug("error on write", slog.Any("error", err))
				w.stop()

				return
			}
		}
	}
}

func (w *JSONWsHandler) reader() {
	defer w.stop()

	for {
		_, _, err := w.ws.ReadMessage()

		if err != nil {
			w.log.Debug("error on read", slog.Any("error", err))

			return
		}
	}
}

// Send queues f and reports whether the client is still alive. A full
// queue drops the frame; clients re-list after reconnecting.
func (w *JSONWsHandler) Send(f *Frame) bool {
	if w == nil || !w.IsActive() {
		return false
	}

	select {
	case <-w.done:
		return false
	case w.ch <- f:
	default:
		if n := w.dropped.Add(1); n%10 == 1 {
			w.log.Warn(fmt.Sprintf("client is slow, %d frames dropped", n))
		}
	}

	return w.IsActive()
}

func (w *JSONWsHandler) closehandler(code int, text string) error {
	w.log.Info(fmt.Sprintf("closed with code %d, msg %s", code, text))
	w.stop()

	return nil
}

func (w *JSONWsHandler) Listen() {
	w.log.Debug("ws start")
	w.ws.SetCloseHandler(w.closehandler)

	go w.writer()
	w.reader()
	w.log.Debug("ws stop")
}
