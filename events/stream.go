package events

import (
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Stream presents a WebSocket connection as the byte stream a STOMP frame
// reader and writer expect. Every Write goes out as one text message;
// Read concatenates incoming messages.
type Stream struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	readMu sync.Mutex
	cur    io.Reader

	writeMu sync.Mutex
}

// NewStream wraps ws. A zero writeTimeout disables write deadlines.
func NewStream(ws *websocket.Conn, writeTimeout time.Duration) *Stream {
	return &Stream{ws: ws, writeTimeout: writeTimeout}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for {
		if s.cur == nil {
			_, r, err := s.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.cur = r
		}
		n, err := s.cur.Read(p)
		if err == io.EOF {
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *Stream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadDeadline bounds the next reads; the zero time clears it.
func (s *Stream) SetReadDeadline(t time.Time) error {
	return s.ws.SetReadDeadline(t)
}

func (s *Stream) Close() error {
	return s.ws.Close()
}
