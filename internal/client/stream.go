package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Jzephh/whop-chat-app/internal/domain"
)

// StreamTransport is the stream-only SSE binding. Reconnecting means
// re-opening the stream; the server pushes a ready event first on every
// fresh subscription.
type StreamTransport struct {
	url   string
	token string
	http  *http.Client
}

func NewStreamTransport(url, token string) *StreamTransport {
	// No client timeout; the stream stays open until the server or the
	// context ends it.
	return &StreamTransport{url: url, token: token, http: &http.Client{}}
}

func (t *StreamTransport) Connect(ctx context.Context) (<-chan domain.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withToken(t.url, t.token), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	events := make(chan domain.Event)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		readEvents(ctx, resp.Body, events)
	}()
	return events, nil
}

// readEvents parses "data: <json>" frames separated by blank lines and
// delivers them until the stream ends. Malformed frames are skipped.
func readEvents(ctx context.Context, r io.Reader, events chan<- domain.Event) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}

		var event domain.Event
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}
}
