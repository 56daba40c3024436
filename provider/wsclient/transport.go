package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 10 * time.Second
	readLimit        = 655350
)

var ErrTooManyRequests = errors.New("websocket handshake: too many requests")

type FrameKind int

const (
	TextFrame FrameKind = iota
	BinaryFrame
	PingFrame
	PongFrame
	CloseFrame
)

func (k FrameKind) String() string {
	switch k {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	case PingFrame:
		return "ping"
	case PongFrame:
		return "pong"
	case CloseFrame:
		return "close"
	}
	return fmt.Sprintf("frame(%d)", int(k))
}

// Frame is one inbound or outbound websocket frame.
// An inbound frame with a non-nil Err carries a read failure and is the last one of a session.
type Frame struct {
	Kind FrameKind
	Data []byte
	Err  error
}

// Session is one streaming socket. Frames is closed once the session ends.
type Session interface {
	Frames() <-chan Frame
	Send(ctx context.Context, frame Frame) error
	Close() error
}

// Dialer opens sessions. A failed handshake is returned as is and never retried here.
type Dialer interface {
	Dial(ctx context.Context, url string) (Session, error)
}

type GorillaDialer struct {
	// ReadTimeout closes a session that has seen neither a frame nor a pong for that long. Zero disables it.
	ReadTimeout time.Duration
}

func NewGorillaDialer(readTimeout time.Duration) *GorillaDialer {
	return &GorillaDialer{ReadTimeout: readTimeout}
}

func (d *GorillaDialer) Dial(ctx context.Context, url string) (Session, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", ErrTooManyRequests, url)
		}
		return nil, err
	}
	conn.SetReadLimit(readLimit)

	s := &gorillaSession{
		conn:        conn,
		frames:      make(chan Frame),
		done:        make(chan struct{}),
		readTimeout: d.ReadTimeout,
	}
	conn.SetPongHandler(s.onPong)

	go s.pump()
	return s, nil
}

type gorillaSession struct {
	conn        *websocket.Conn
	frames      chan Frame
	done        chan struct{}
	readTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *gorillaSession) Frames() <-chan Frame {
	return s.frames
}

func (s *gorillaSession) Send(ctx context.Context, frame Frame) error {
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	switch frame.Kind {
	case PingFrame:
		return s.conn.WriteControl(websocket.PingMessage, frame.Data, deadline)
	case PongFrame:
		return s.conn.WriteControl(websocket.PongMessage, frame.Data, deadline)
	case CloseFrame:
		return s.conn.WriteControl(websocket.CloseMessage, frame.Data, deadline)
	}

	messageType := websocket.TextMessage
	if frame.Kind == BinaryFrame {
		messageType = websocket.BinaryMessage
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, frame.Data)
}

// Close sends a normal closure and drops the socket. The close frame is best effort.
func (s *gorillaSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		writeErr := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
			err = writeErr
		}
		if closeErr := s.conn.Close(); err == nil {
			err = closeErr
		}
	})
	return err
}

func (s *gorillaSession) pump() {
	defer close(s.frames)

	for {
		// the deadline covers the wait for the peer only, never a slow consumer
		s.extendDeadline()
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			// gorilla reports a drop without a close frame as *CloseError with code 1006
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				s.emit(Frame{Kind: CloseFrame, Data: []byte(closeErr.Error())})
				return
			}
			s.emit(Frame{Err: err})
			return
		}

		kind := TextFrame
		if messageType == websocket.BinaryMessage {
			kind = BinaryFrame
		}
		if !s.emit(Frame{Kind: kind, Data: data}) {
			return
		}
	}
}

// onPong runs on the pump goroutine.
func (s *gorillaSession) onPong(appData string) error {
	s.emit(Frame{Kind: PongFrame, Data: []byte(appData)})
	s.extendDeadline()
	return nil
}

func (s *gorillaSession) emit(frame Frame) bool {
	select {
	case s.frames <- frame:
		return true
	case <-s.done:
		return false
	}
}

func (s *gorillaSession) extendDeadline() {
	if s.readTimeout <= 0 {
		return
	}
	_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
}
