package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "wsclient")

const maxReconnectBackoff = 60 * time.Second

var (
	// ErrFatal marks failures after which the client is in no defined state:
	// initial connect, exhausted reconnect attempts and failed resubscription.
	ErrFatal              = errors.New("stream client fatal error")
	ErrUnsupportedMessage = errors.New("unsupported websocket message")
	ErrStreamEnded        = errors.New("stream ended without close frame")
	errForcedReconnect    = errors.New("reconnect requested")
	errCloseFrame         = errors.New("close frame received")
)

// StreamDescription yields the subscribe requests sent after every (re)connect.
type StreamDescription[R any] interface {
	SubscribeRequests() []R
}

// Codec binds the client to one payload schema.
type Codec[M any] interface {
	Decode(data []byte) (M, error)
	// Pong is the message returned for a keepalive reply frame.
	Pong() M
}

type Options struct {
	SubscribeInterval    time.Duration
	ReconnectGrace       time.Duration
	MaxReconnectAttempts int
	RateLimitCooldown    time.Duration
	// Pings is raced against inbound frames in Next; each signal sends one ping.
	Pings <-chan struct{}
	// OnReconnect is called with the trigger of every reconnect.
	OnReconnect func(reason error)
}

func DefaultOptions() Options {
	return Options{
		SubscribeInterval:    100 * time.Millisecond,
		ReconnectGrace:       time.Second,
		MaxReconnectAttempts: 5,
		RateLimitCooldown:    time.Minute,
	}
}

// StreamClient keeps one subscribed stream alive across disconnects.
// It is driven by a single consumer goroutine.
type StreamClient[R any, M any] struct {
	url         string
	dialer      Dialer
	session     Session
	description StreamDescription[R]
	codec       Codec[M]
	opts        Options
}

// Establish connects to url without subscribing. A failed connect is fatal.
func Establish[R any, M any](
	ctx context.Context,
	dialer Dialer,
	url string,
	description StreamDescription[R],
	codec Codec[M],
	opts Options,
) (*StreamClient[R, M], error) {
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 1
	}

	session, err := dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %w", ErrFatal, url, err)
	}
	logger.Debugf("websocket connection established to %s", url)

	return &StreamClient[R, M]{
		url:         url,
		dialer:      dialer,
		session:     session,
		description: description,
		codec:       codec,
		opts:        opts,
	}, nil
}

func (c *StreamClient[R, M]) URL() string {
	return c.url
}

// Subscribe sends every request of the description as one text frame,
// waiting SubscribeInterval between frames.
func (c *StreamClient[R, M]) Subscribe(ctx context.Context) error {
	for i, request := range c.description.SubscribeRequests() {
		if i > 0 {
			if err := sleep(ctx, c.opts.SubscribeInterval); err != nil {
				return err
			}
		}

		data, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("marshal subscribe request: %w", err)
		}
		if err := c.session.Send(ctx, Frame{Kind: TextFrame, Data: data}); err != nil {
			return fmt.Errorf("send subscribe request: %w", err)
		}
		logger.Tracef("subscribe request sent %s", data)
	}
	return nil
}

// Reconnect drops the current session and subscribes again on a new one.
func (c *StreamClient[R, M]) Reconnect(ctx context.Context) error {
	return c.reconnect(ctx, errForcedReconnect)
}

func (c *StreamClient[R, M]) reconnect(ctx context.Context, reason error) error {
	logger.Warnf("%v; reconnecting to %s", reason, c.url)
	if c.opts.OnReconnect != nil {
		c.opts.OnReconnect(reason)
	}

	if err := sleep(ctx, c.opts.ReconnectGrace); err != nil {
		return err
	}
	if err := c.session.Close(); err != nil {
		logger.Warnf("websocket stream close failure while reconnecting, %v", err)
	}

	session, err := c.redial(ctx)
	if err != nil {
		return err
	}
	c.session = session
	logger.Debugf("reconnected to %s", c.url)

	if err := c.Subscribe(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: resubscribe to %s: %w", ErrFatal, c.url, err)
	}
	logger.Debugf("resubscribed to %s", c.url)
	return nil
}

// newReconnectBackoff doubles the delay between failed dials, starting at grace.
func newReconnectBackoff(grace time.Duration) *backoff.Backoff {
	if grace <= 0 {
		grace = time.Second
	}
	return &backoff.Backoff{
		Min:    grace,
		Max:    maxReconnectBackoff,
		Factor: 2,
	}
}

func (c *StreamClient[R, M]) redial(ctx context.Context) (Session, error) {
	var (
		lastErr error
		delay   time.Duration
	)
	b := newReconnectBackoff(c.opts.ReconnectGrace)

	for attempt := 0; attempt < c.opts.MaxReconnectAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		session, err := c.dialer.Dial(ctx, c.url)
		if err == nil {
			return session, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if errors.Is(err, ErrTooManyRequests) {
			delay = c.opts.RateLimitCooldown
			logger.Errorf("HTTP status: TOO_MANY_REQUESTS => %s sleep before reconnecting to %s", delay, c.url)
			continue
		}
		delay = b.Duration()
		logger.Warnf("reconnect attempt %d to %s failed: %v", attempt+1, c.url, err)
	}

	return nil, fmt.Errorf("%w: reconnect to %s after %d attempts: %w", ErrFatal, c.url, c.opts.MaxReconnectAttempts, lastErr)
}

// Next returns the next decoded message. Disconnects, close frames and rate
// limiting are handled by reconnecting; the caller only sees fatal, decode
// and unsupported frame errors.
func (c *StreamClient[R, M]) Next(ctx context.Context) (M, error) {
	var zero M

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()

		case <-c.opts.Pings:
			if err := c.Ping(ctx, nil); err != nil {
				logger.Errorf("failed to send ping to %s: %v", c.url, err)
			}

		case frame, ok := <-c.session.Frames():
			if !ok {
				frame = Frame{Err: ErrStreamEnded}
			}

			switch {
			case frame.Err != nil:
				if !isReconnectTrigger(frame.Err) {
					return zero, fmt.Errorf("receive from %s: %w", c.url, frame.Err)
				}
				if err := c.reconnect(ctx, frame.Err); err != nil {
					return zero, err
				}

			case frame.Kind == TextFrame || frame.Kind == BinaryFrame:
				msg, err := c.codec.Decode(frame.Data)
				if err != nil {
					return zero, fmt.Errorf("decode %s frame: %w", frame.Kind, err)
				}
				return msg, nil

			case frame.Kind == CloseFrame:
				if err := c.reconnect(ctx, fmt.Errorf("%w: %s", errCloseFrame, frame.Data)); err != nil {
					return zero, err
				}

			case frame.Kind == PongFrame:
				return c.codec.Pong(), nil

			default:
				return zero, fmt.Errorf("%w: %s frame", ErrUnsupportedMessage, frame.Kind)
			}
		}
	}
}

func (c *StreamClient[R, M]) Ping(ctx context.Context, payload []byte) error {
	return c.session.Send(ctx, Frame{Kind: PingFrame, Data: payload})
}

func (c *StreamClient[R, M]) Close() error {
	return c.session.Close()
}

func isReconnectTrigger(err error) bool {
	if errors.Is(err, ErrStreamEnded) ||
		errors.Is(err, ErrTooManyRequests) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ReasonLabel names a reconnect trigger for metrics.
func ReasonLabel(reason error) string {
	var (
		closeErr *websocket.CloseError
		netErr   net.Error
	)
	switch {
	case errors.Is(reason, errForcedReconnect):
		return "forced"
	case errors.Is(reason, ErrTooManyRequests):
		return "rate_limited"
	case errors.Is(reason, ErrStreamEnded):
		return "stream_ended"
	case errors.As(reason, &closeErr):
		if closeErr.Code == websocket.CloseAbnormalClosure {
			return "abrupt_close"
		}
		return "close_frame"
	case errors.As(reason, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(reason, errCloseFrame):
		return "close_frame"
	}
	return "network"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
