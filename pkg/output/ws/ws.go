// Package ws streams scaled frames to WebSocket subscribers as JSON.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
)

type WSOutput struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger
	server   *http.Server

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWS creates the output and, when listen is non-empty, starts an HTTP
// server exposing the stream at /stream. With an empty listen address the
// caller mounts the output as an http.Handler itself.
func NewWS(listen string, logger *logrus.Logger) *WSOutput {
	w := &WSOutput{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
		clients:  make(map[*websocket.Conn]struct{}),
	}
	if listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/stream", w)
		w.server = &http.Server{Addr: listen, Handler: mux}
		go func() {
			logger.WithField("listen", listen).Info("WebSocket output listening")
			if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("WebSocket server stopped")
			}
		}()
	}
	return w
}

func (w *WSOutput) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	w.mu.Lock()
	w.clients[conn] = struct{}{}
	w.mu.Unlock()
	w.logger.WithField("remote", conn.RemoteAddr().String()).Debug("WebSocket client connected")
}

func (w *WSOutput) Publish(frames []daq.Frame) error {
	b, err := json.Marshal(frames)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn := range w.clients {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			// a dead subscriber must not wedge the acquisition loop
			w.logger.WithError(err).Debug("dropping WebSocket client")
			conn.Close()
			delete(w.clients, conn)
		}
	}
	return nil
}

func (w *WSOutput) Close() error {
	w.mu.Lock()
	for conn := range w.clients {
		conn.Close()
		delete(w.clients, conn)
	}
	w.mu.Unlock()
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}
