package client

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

// Transport opens one live event stream. Connect returns a channel that
// delivers decoded events and closes when the connection ends for any
// reason; the subscriber decides whether and when to reconnect.
type Transport interface {
	Connect(ctx context.Context) (<-chan domain.Event, error)
}

// withToken appends the credential as a query parameter. Browsers cannot set
// headers on WebSocket or EventSource, so the server accepts it there.
func withToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// WebSocketTransport is the bidirectional binding. The channel is push-only
// in practice; nothing of semantic value goes back to the server.
type WebSocketTransport struct {
	url    string
	token  string
	dialer *websocket.Dialer
}

func NewWebSocketTransport(url, token string) *WebSocketTransport {
	return &WebSocketTransport{url: url, token: token, dialer: websocket.DefaultDialer}
}

func (t *WebSocketTransport) Connect(ctx context.Context) (<-chan domain.Event, error) {
	conn, _, err := t.dialer.DialContext(ctx, withToken(t.url, t.token), nil)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.Event)
	readerDone := make(chan struct{})
	// The watcher must not outlive this connection, or one goroutine piles
	// up per reconnect for as long as the subscriber context stays alive.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-readerDone:
		}
	}()
	go func() {
		defer close(events)
		defer close(readerDone)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event domain.Event
			if err := json.Unmarshal(data, &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
