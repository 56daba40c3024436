package usecase

import (
	"context"
	"errors"

	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

type BookReader interface {
	Get(symbol string) (*domain.OrderBook, error)
}

type OrderBookSnapshotUseCase struct {
	storage BookReader
	poller  domain.ExchangePoller
}

func NewOrderBookSnapshotUseCase(storage BookReader, poller domain.ExchangePoller) *OrderBookSnapshotUseCase {
	return &OrderBookSnapshotUseCase{
		storage: storage,
		poller:  poller,
	}
}

// GetOrderBookSnapshot returns the snapshot from the runtime storage or, for
// a symbol the stream does not maintain, from the provider api.
func (o *OrderBookSnapshotUseCase) GetOrderBookSnapshot(
	ctx context.Context, symbol string, limit int,
) (*domain.OrderBookSnapshot, error) {
	orderbook, err := o.storage.Get(symbol)
	if err == nil {
		return orderbook.TakeSnapshot(limit), nil
	}
	if !errors.Is(err, domain.ErrOrderBookNotFound) || o.poller == nil {
		return nil, err
	}

	logger.Debugf("order book %s is not in the runtime storage, provider`s snapshot returns", symbol)
	orderbook, err = o.poller.GetOrderBook(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snapshot := orderbook.TakeSnapshot(limit)
	snapshot.Source = domain.OrderBookSource_Provider
	return snapshot, nil
}
