package okx

import (
	"context"
	"errors"
	"fmt"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
	"github.com/spooky-finn/go-okx-md-bridge/helpers"
	promclient "github.com/spooky-finn/go-okx-md-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-okx-md-bridge/provider/wsclient"
)

var logger = logrus.WithField("component", "okx-md")

var ErrMalformedBatch = errors.New("okx: data message must carry exactly one book")

// mdStream is the part of the stream client the connection drives.
type mdStream interface {
	Next(ctx context.Context) (*OkxWsMessage, error)
	Reconnect(ctx context.Context) error
	Close() error
}

// OkxMdConnection turns books channel messages into normalized events.
// Increments of one batch are queued and handed out one per Next call.
type OkxMdConnection struct {
	ws          mdStream
	keepalive   *wsclient.Keepalive
	validator   domain.IDepthUpdateValidator
	resyncOnGap bool

	incrementQueue deque.Deque[domain.MdMessage]
}

var _ domain.MdConnection = (*OkxMdConnection)(nil)

// NewOkxMdConnection connects and subscribes to the order books of tickers.
//
// If you need to subscribe to many 50 or 400 depth level channels, it is
// recommended to subscribe through multiple websocket connections, with each
// of less than 30 channels.
// https://www.okx.com/docs-v5/en/#order-book-trading-market-data-ws-order-book-channel
func NewOkxMdConnection(ctx context.Context, tickers []string, config MdConnectionConfig) (*OkxMdConnection, error) {
	stream := NewOkxStream(tickers, config.Channel, config.ChannelTickersAmount)

	var keepalive *wsclient.Keepalive
	opts := wsclient.Options{
		SubscribeInterval:    config.SubscribeInterval,
		ReconnectGrace:       config.ReconnectGrace,
		MaxReconnectAttempts: config.MaxReconnectAttempts,
		RateLimitCooldown:    config.RateLimitCooldown,
		OnReconnect: func(reason error) {
			promclient.WsReconnectsTotal.WithLabelValues(wsclient.ReasonLabel(reason)).Inc()
		},
	}
	if config.PingFrequency > 0 {
		keepalive = wsclient.NewKeepalive(config.PingFrequency)
		opts.Pings = keepalive.C()
	}

	ws, err := wsclient.Establish[WsRequest, *OkxWsMessage](
		ctx,
		wsclient.NewGorillaDialer(config.ReadTimeout),
		config.WsURL,
		stream,
		Codec{},
		opts,
	)
	if err != nil {
		stopKeepalive(keepalive)
		return nil, fmt.Errorf("failed to connect to okx websocket: %w", err)
	}

	if err := ws.Subscribe(ctx); err != nil {
		stopKeepalive(keepalive)
		ws.Close()
		return nil, fmt.Errorf("failed to subscribe to okx md: %w", err)
	}
	logger.Infof("subscribed to %s channel for %d instruments at %s", stream.Channel, len(tickers), config.WsURL)

	return newMdConnection(ws, keepalive, config.ResyncOnGap), nil
}

func newMdConnection(ws mdStream, keepalive *wsclient.Keepalive, resyncOnGap bool) *OkxMdConnection {
	return &OkxMdConnection{
		ws:             ws,
		keepalive:      keepalive,
		validator:      NewSequenceValidator(),
		resyncOnGap:    resyncOnGap,
		incrementQueue: deque.Deque[domain.MdMessage]{},
	}
}

// Next returns the next normalized event. Frames are only pulled while the
// increment queue is empty. Any returned error is fatal for the connection.
func (c *OkxMdConnection) Next(ctx context.Context) (domain.MdMessage, error) {
	for c.incrementQueue.Len() == 0 {
		msg, err := c.ws.Next(ctx)
		if err != nil {
			return nil, err
		}

		switch msg.Kind {
		case KindCombined:
			snapshot, err := c.onCombined(ctx, msg.Combined)
			if err != nil {
				return nil, err
			}
			if snapshot != nil {
				return snapshot, nil
			}
		case KindSubEvent:
			c.onSubEvent(msg.SubEvent)
		case KindPong:
			promclient.MdMessagesTotal.WithLabelValues(KindPong.String()).Inc()
		}
	}

	return c.incrementQueue.PopFront(), nil
}

func (c *OkxMdConnection) Close() error {
	stopKeepalive(c.keepalive)
	return c.ws.Close()
}

// onCombined returns the initial snapshot of an instrument, or queues the
// increments of an update batch and returns nil.
func (c *OkxMdConnection) onCombined(ctx context.Context, combined *CombinedMessage) (domain.MdMessage, error) {
	if len(combined.Data) != 1 {
		return nil, fmt.Errorf("%w: %d books for %s", ErrMalformedBatch, len(combined.Data), combined.Arg.InstID)
	}
	book := &combined.Data[0]
	symbol := combined.Arg.InstID

	if book.IsInitial() {
		c.validator.Reset(symbol, book.SeqID)
		promclient.MdMessagesTotal.WithLabelValues("snapshot").Inc()
		return book.ToL2Snapshot(symbol), nil
	}

	if err := c.validator.IsValidUpd(symbol, *book.PrevSeqID, book.SeqID); err != nil {
		if c.validator.IsErrOutdated(err) {
			logger.Debugf("%s: dropped outdated batch seqId=%d", symbol, book.SeqID)
			return nil, nil
		}

		logger.Warnf("%s: %v, prevSeqId=%d seqId=%d", symbol, err, *book.PrevSeqID, book.SeqID)
		promclient.SequenceGapsTotal.WithLabelValues(symbol).Inc()
		if c.resyncOnGap {
			// resubscribing makes the exchange send fresh initial snapshots
			return nil, c.ws.Reconnect(ctx)
		}
		c.validator.Reset(symbol, book.SeqID)
	}

	increments := book.ToIncrements(symbol)
	for _, increment := range increments {
		c.incrementQueue.PushBack(increment)
	}
	promclient.MdMessagesTotal.WithLabelValues("increment").Add(float64(len(increments)))
	return nil, nil
}

func (c *OkxMdConnection) onSubEvent(sub *SubEvent) {
	promclient.MdMessagesTotal.WithLabelValues(KindSubEvent.String()).Inc()
	if sub.Event == EventError {
		logger.Warnf("received error subscribe event %s", helpers.ToJsonString(sub))
		return
	}
	logger.Tracef("sub event %s", helpers.ToJsonString(sub))
}

func stopKeepalive(k *wsclient.Keepalive) {
	if k != nil {
		k.Stop()
	}
}
