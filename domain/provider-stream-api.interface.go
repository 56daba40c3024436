package domain

import "context"

// MdConnection yields normalized events from one exchange stream.
// An error returned by Next is fatal for the connection.
type MdConnection interface {
	Next(ctx context.Context) (MdMessage, error)
	Close() error
}

// ExchangePoller fetches a full order book over REST.
type ExchangePoller interface {
	GetOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
}

// MdSink consumes normalized events and REST-sourced full books.
type MdSink interface {
	OnEvent(message MdMessage)
	OnFullBook(symbol string, book *OrderBook)
}

// BookObserver receives top-of-book changes. A side that is empty is passed as a zero SingleLot.
type BookObserver interface {
	OnTopOfBook(symbol string, bestBid SingleLot, bestAsk SingleLot)
	OnBookCount(count int)
}
