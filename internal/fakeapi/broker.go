package fakeapi

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"

	"github.com/st-keller/employee-client/events"
)

// broker is a minimal STOMP broker: CONNECT, SUBSCRIBE, UNSUBSCRIBE and
// DISCONNECT from clients, MESSAGE to subscribers.
type broker struct {
	upgrader websocket.Upgrader
	seq      atomic.Int64
	accepted atomic.Int64

	mu    sync.Mutex
	conns map[*brokerConn]struct{}
}

type brokerConn struct {
	stream  *events.Stream
	writer  *frame.Writer
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]string // subscription id -> destination
}

func newBroker() *broker {
	return &broker{conns: make(map[*brokerConn]struct{})}
}

func (c *brokerConn) send(f *frame.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writer.Write(f)
}

func (b *broker) serve(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	stream := events.NewStream(ws, 0)
	c := &brokerConn{
		stream: stream,
		writer: frame.NewWriter(stream),
		subs:   make(map[string]string),
	}
	reader := frame.NewReader(stream)
	b.accepted.Add(1)

	b.mu.Lock()
	b.conns[c] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.conns, c)
		b.mu.Unlock()
		ws.Close()
	}()

	for {
		f, err := reader.Read()
		if err != nil {
			return
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.CONNECT, frame.STOMP:
			c.send(frame.New(frame.CONNECTED,
				"version", "1.2",
				"heart-beat", "0,0",
				"server", "fakeapi"))
		case frame.SUBSCRIBE:
			c.mu.Lock()
			c.subs[f.Header.Get("id")] = f.Header.Get("destination")
			c.mu.Unlock()
		case frame.UNSUBSCRIBE:
			c.mu.Lock()
			delete(c.subs, f.Header.Get("id"))
			c.mu.Unlock()
		case frame.DISCONNECT:
			if receipt := f.Header.Get("receipt"); receipt != "" {
				c.send(frame.New(frame.RECEIPT, "receipt-id", receipt))
			}
			return
		default:
			c.send(frame.New(frame.ERROR, "message", "unsupported command "+f.Command))
		}
	}
}

func (b *broker) publish(destination, body string) {
	b.mu.Lock()
	conns := make([]*brokerConn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.mu.Lock()
		var ids []string
		for id, dest := range c.subs {
			if dest == destination {
				ids = append(ids, id)
			}
		}
		c.mu.Unlock()

		for _, id := range ids {
			f := frame.New(frame.MESSAGE,
				"destination", destination,
				"subscription", id,
				"message-id", strconv.FormatInt(b.seq.Add(1), 10),
				"content-type", "text/plain;charset=UTF-8")
			f.Body = []byte(body)
			c.send(f)
		}
	}
}

func (b *broker) subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for c := range b.conns {
		c.mu.Lock()
		n += len(c.subs)
		c.mu.Unlock()
	}
	return n
}

// closeAll drops every connection without a STOMP goodbye.
func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.conns {
		c.stream.Close()
		delete(b.conns, c)
	}
}
