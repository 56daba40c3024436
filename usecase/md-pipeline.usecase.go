package usecase

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

var logger = logrus.WithField("component", "usecase")

// MdPipeline pumps events from one connection into a sink until the
// connection fails or the context is done.
type MdPipeline struct {
	conn domain.MdConnection
	sink domain.MdSink
}

func NewMdPipeline(conn domain.MdConnection, sink domain.MdSink) *MdPipeline {
	return &MdPipeline{
		conn: conn,
		sink: sink,
	}
}

// SeedBooks loads REST books for symbols into sink. It is meant to run before
// the stream connects: the first stream snapshot of a symbol replaces its
// seeded book. Failures for a single symbol are logged and skipped.
func SeedBooks(ctx context.Context, poller domain.ExchangePoller, sink domain.MdSink, symbols []string) error {
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		book, err := poller.GetOrderBook(ctx, symbol)
		if err != nil {
			logger.Warnf("failed to seed order book %s: %s", symbol, err)
			continue
		}
		sink.OnFullBook(symbol, book)
		logger.Debugf("order book %s is seeded from rest, %s", symbol, book)
	}
	return nil
}

// Run returns nil when ctx is cancelled and the connection error otherwise.
func (p *MdPipeline) Run(ctx context.Context) error {
	for {
		msg, err := p.conn.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		p.sink.OnEvent(msg)
	}
}
