// Package wsadapter adapts gorilla websocket connections to the engine's
// Sender capability. The engine never sees transport types.
package wsadapter

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeDeadline  = 5 * time.Second
	sendBufferSize = 16
)

// Writer owns the write side of one viewer connection. A dedicated goroutine
// drains the send buffer so a stalled peer never blocks the engine loop.
type Writer struct {
	conn      *websocket.Conn
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewWriter(conn *websocket.Conn) *Writer {
	w := &Writer{
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	for {
		select {
		case msg := <-w.sendCh:
			_ = w.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}

// TrySend marshals the payload and queues it without blocking. It reports
// false when the buffer is full or the payload cannot be encoded.
func (w *Writer) TrySend(payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal broadcast payload", "error", err)
		return false
	}

	select {
	case w.sendCh <- data:
		return true
	case <-w.done:
		return false
	default:
		return false
	}
}

// Close stops the writer goroutine and closes the underlying connection.
// Safe to call more than once.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}
