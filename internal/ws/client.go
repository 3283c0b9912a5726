package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

type Client struct {
	conn *websocket.Conn

	mu     sync.RWMutex
	out    chan []byte
	closed bool
	topics map[string]struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:   conn,
		out:    make(chan []byte, 64),
		topics: map[string]struct{}{},
	}
}

// send is called by the hub with no hub lock held, so it can race the
// reader's teardown. The closed flag is checked under the client lock;
// shutdown takes the same lock exclusively, so no send is in flight when
// the channel closes.
func (c *Client) send(payload []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.out <- payload:
	default:
		// Slow consumer; drop the connection rather than blocking the hub.
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// shutdown closes the outbound channel exactly once. Sends arriving after
// shutdown are dropped.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

func (c *Client) addTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = struct{}{}
}

func (c *Client) listTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}
