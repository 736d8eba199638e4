package registry

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Jzephh/whop-chat-app/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	messageBufferSize = 16
)

// pingFrame is the keepalive event. Intermediary infrastructure tears down
// idle connections, so every bidirectional client gets one on a fixed interval.
var pingFrame = []byte(`{"type":"ping"}`)

// clientWriter owns all writes to one WebSocket connection. Events arrive on
// a buffered channel so the hub never blocks on a slow recipient; the frame
// order in the channel is the broadcast invocation order.
type clientWriter struct {
	connection  *websocket.Conn
	clock       clockwork.Clock
	keepalive   time.Duration
	sendChannel chan []byte
	doneChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func newClientWriter(connection *websocket.Conn, clock clockwork.Clock, keepalive time.Duration) *clientWriter {
	cw := &clientWriter{
		connection:  connection,
		clock:       clock,
		keepalive:   keepalive,
		sendChannel: make(chan []byte, messageBufferSize),
		doneChannel: make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	ticker := cw.clock.NewTicker(cw.keepalive)
	defer ticker.Stop()
	defer cw.wg.Done()

	for {
		select {
		case msg, ok := <-cw.sendChannel:
			if !ok {
				return
			}
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Transport is gone. The read pump sees the close and
				// unregisters; nothing to do here.
				return
			}
		case <-ticker.Chan():
			cw.updateWriteDeadline()
			if err := cw.connection.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				metrics.KeepalivePingFailures.Inc()
				return
			}
		case <-cw.doneChannel:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

// stopGraceful sends a WebSocket close frame with reason before closing.
func (cw *clientWriter) stopGraceful(reason string) {
	cw.stopOnce.Do(func() {
		close(cw.doneChannel)

		// Wait for run to exit so the close frame is not a concurrent write.
		cw.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		cw.updateWriteDeadline()
		_ = cw.connection.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = cw.connection.Close()
	})
	cw.wg.Wait()
}

func (cw *clientWriter) updateWriteDeadline() {
	deadline := cw.clock.Now().Add(writeDeadline)
	_ = cw.connection.SetWriteDeadline(deadline)
}
