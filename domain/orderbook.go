package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/btree"
)

type OrderBookSource string

const (
	OrderBookSource_Provider       OrderBookSource = "Provider"
	OrderBookSource_LocalOrderBook OrderBookSource = "LocalOrderBook"
)

type OrderBookSnapshot struct {
	Source       OrderBookSource `json:"source"`
	Symbol       string          `json:"symbol"`
	LastUpdateId int64           `json:"lastUpdateId"`
	Bids         [][]string      `json:"bids"`
	Asks         [][]string      `json:"asks"`
}

// OrderBook keeps both sides of one instrument ordered ascending by price.
// A level with zero amount is never stored.
type OrderBook struct {
	Symbol         string
	LastUpdateID   int64
	LastUpdateTime time.Time

	bids     *btree.BTreeG[SingleLot]
	asks     *btree.BTreeG[SingleLot]
	updateMx sync.RWMutex
}

func byPrice(a, b SingleLot) bool {
	return a.Price.LessThan(b.Price)
}

func newSide() *btree.BTreeG[SingleLot] {
	return btree.NewBTreeGOptions(byPrice, btree.Options{NoLocks: true})
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newSide(),
		asks:   newSide(),
	}
}

// NewOrderBookFromLevels builds a book from a full depth listing, e.g. a REST response.
func NewOrderBookFromLevels(symbol string, bids, asks []SingleLot) *OrderBook {
	return &OrderBook{
		Symbol:         symbol,
		LastUpdateTime: time.Now(),
		bids:           sideFromLevels(bids),
		asks:           sideFromLevels(asks),
	}
}

func sideFromLevels(levels []SingleLot) *btree.BTreeG[SingleLot] {
	side := newSide()
	for _, level := range levels {
		if level.Amount.IsZero() {
			continue
		}
		side.Set(level)
	}
	return side
}

func (ob *OrderBook) ProcessSnapshot(snapshot *L2Snapshot) {
	bids := sideFromLevels(snapshot.Bids)
	asks := sideFromLevels(snapshot.Asks)

	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	ob.bids = bids
	ob.asks = asks
	ob.touch(snapshot.SequenceNo)
}

func (ob *OrderBook) ProcessUpdate(update *L2Increment) {
	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	side := ob.bids
	if update.Side == Ask {
		side = ob.asks
	}

	if update.Amount.IsZero() {
		side.Delete(SingleLot{Price: update.Price})
	} else {
		side.Set(SingleLot{Price: update.Price, Amount: update.Amount})
	}
	ob.touch(update.SequenceNo)

	if update.IsEOT {
		logger.Debugf("%s %s", ob.Symbol, ob.topOfBook())
	}
}

// ReplaceWith swaps in the levels of other wholesale.
func (ob *OrderBook) ReplaceWith(other *OrderBook) {
	if ob == other {
		return
	}

	// Copy marks the source tree, so it needs the write lock.
	other.updateMx.Lock()
	bids, asks := other.bids.Copy(), other.asks.Copy()
	seq := other.LastUpdateID
	other.updateMx.Unlock()

	ob.updateMx.Lock()
	defer ob.updateMx.Unlock()

	ob.bids = bids
	ob.asks = asks
	ob.LastUpdateID = seq
	ob.LastUpdateTime = time.Now()
}

func (ob *OrderBook) touch(seq int64) {
	if seq != 0 {
		ob.LastUpdateID = seq
	}
	ob.LastUpdateTime = time.Now()
}

// BestBid is the highest bid price level.
func (ob *OrderBook) BestBid() (SingleLot, bool) {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()
	return ob.bids.Max()
}

// BestAsk is the lowest ask price level.
func (ob *OrderBook) BestAsk() (SingleLot, bool) {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()
	return ob.asks.Min()
}

// Bids returns up to limit levels, best first. limit <= 0 means all.
func (ob *OrderBook) Bids(limit int) []SingleLot {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()

	levels := make([]SingleLot, 0, ob.bids.Len())
	ob.bids.Reverse(func(level SingleLot) bool {
		levels = append(levels, level)
		return limit <= 0 || len(levels) < limit
	})
	return levels
}

// Asks returns up to limit levels, best first. limit <= 0 means all.
func (ob *OrderBook) Asks(limit int) []SingleLot {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()

	levels := make([]SingleLot, 0, ob.asks.Len())
	ob.asks.Scan(func(level SingleLot) bool {
		levels = append(levels, level)
		return limit <= 0 || len(levels) < limit
	})
	return levels
}

func (ob *OrderBook) Depth() (bids int, asks int) {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()
	return ob.bids.Len(), ob.asks.Len()
}

func (ob *OrderBook) TakeSnapshot(limit int) *OrderBookSnapshot {
	bids := ob.Bids(limit)
	asks := ob.Asks(limit)

	ob.updateMx.RLock()
	lastUpdateID := ob.LastUpdateID
	ob.updateMx.RUnlock()

	return &OrderBookSnapshot{
		Source:       OrderBookSource_LocalOrderBook,
		Symbol:       ob.Symbol,
		LastUpdateId: lastUpdateID,
		Bids:         serializePriceLevel(bids),
		Asks:         serializePriceLevel(asks),
	}
}

func (ob *OrderBook) String() string {
	ob.updateMx.RLock()
	defer ob.updateMx.RUnlock()
	return ob.topOfBook()
}

// topOfBook expects updateMx to be held.
func (ob *OrderBook) topOfBook() string {
	bid, ask := "0", "0"
	if level, ok := ob.bids.Max(); ok {
		bid = level.Price.String()
	}
	if level, ok := ob.asks.Min(); ok {
		ask = level.Price.String()
	}
	return fmt.Sprintf("OrderBook { bid: %s, ask: %s }", bid, ask)
}

func serializePriceLevel(depth []SingleLot) [][]string {
	result := make([][]string, len(depth))
	for i, level := range depth {
		result[i] = []string{level.Price.String(), level.Amount.String()}
	}
	return result
}
