package domain

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lot(t *testing.T, price, amount string) SingleLot {
	t.Helper()
	l, err := NewSingleLot(price, amount)
	require.NoError(t, err)
	return l
}

func increment(t *testing.T, side Side, price, amount string, eot bool) *L2Increment {
	l := lot(t, price, amount)
	return &L2Increment{
		Symbol: "BTC-USDT",
		Side:   side,
		Price:  l.Price,
		Amount: l.Amount,
		IsEOT:  eot,
	}
}

func testSnapshot(t *testing.T) *L2Snapshot {
	return &L2Snapshot{
		SequenceNo: 123,
		Symbol:     "BTC-USDT",
		Bids:       []SingleLot{lot(t, "10000", "1"), lot(t, "9900", "2"), lot(t, "9800", "0")},
		Asks:       []SingleLot{lot(t, "10100", "1.5"), lot(t, "10200", "2.5")},
	}
}

func TestOrderBook_ProcessSnapshot(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))

	bids, asks := ob.Depth()
	assert.Equal(t, 2, bids, "zero amount bid should be dropped")
	assert.Equal(t, 2, asks)
	assert.Equal(t, int64(123), ob.LastUpdateID, "LastUpdateID should match")
	assert.Equal(t, [][]string{{"10000", "1"}, {"9900", "2"}}, ob.TakeSnapshot(0).Bids)
	assert.Equal(t, [][]string{{"10100", "1.5"}, {"10200", "2.5"}}, ob.TakeSnapshot(0).Asks)
}

func TestOrderBook_ProcessSnapshotReplacesState(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))
	ob.ProcessSnapshot(&L2Snapshot{
		Symbol: "BTC-USDT",
		Bids:   []SingleLot{lot(t, "1", "1")},
	})

	assert.Equal(t, [][]string{{"1", "1"}}, ob.TakeSnapshot(0).Bids)
	assert.Empty(t, ob.TakeSnapshot(0).Asks)
	assert.Equal(t, int64(123), ob.LastUpdateID, "missing sequence should keep the previous one")
}

func TestOrderBook_SnapshotIdempotence(t *testing.T) {
	once := NewOrderBook("BTC-USDT")
	once.ProcessSnapshot(testSnapshot(t))

	twice := NewOrderBook("BTC-USDT")
	twice.ProcessSnapshot(testSnapshot(t))
	twice.ProcessSnapshot(testSnapshot(t))

	assert.Equal(t, once.TakeSnapshot(0), twice.TakeSnapshot(0))
}

func TestOrderBook_ProcessUpdate(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))

	ob.ProcessUpdate(increment(t, Bid, "9800", "3", false))     // adding new bid
	ob.ProcessUpdate(increment(t, Ask, "10100.00", "2", false)) // updating ask, same price with another scale
	ob.ProcessUpdate(increment(t, Ask, "10200", "0", true))     // removing ask

	assert.Equal(t, [][]string{{"10000", "1"}, {"9900", "2"}, {"9800", "3"}}, ob.TakeSnapshot(0).Bids, "Bids should match")
	assert.Equal(t, [][]string{{"10100", "2"}}, ob.TakeSnapshot(0).Asks, "Asks should match")
}

func TestOrderBook_RemoveAbsentLevel(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))
	before := ob.TakeSnapshot(0)

	ob.ProcessUpdate(increment(t, Bid, "1", "0", false))
	ob.ProcessUpdate(increment(t, Bid, "1", "0", false))

	assert.Equal(t, before.Bids, ob.TakeSnapshot(0).Bids)
	assert.Equal(t, before.Asks, ob.TakeSnapshot(0).Asks)
}

func TestOrderBook_ZeroAmountNeverStored(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	ob := NewOrderBook("BTC-USDT")

	for i := 0; i < 5000; i++ {
		side := Bid
		if rnd.Intn(2) == 1 {
			side = Ask
		}
		amount := decimal.Zero
		if rnd.Intn(3) > 0 {
			amount = decimal.New(rnd.Int63n(100)+1, -2)
		}
		ob.ProcessUpdate(&L2Increment{
			Symbol: "BTC-USDT",
			Side:   side,
			Price:  decimal.New(rnd.Int63n(50)+100, -1),
			Amount: amount,
		})

		for _, level := range append(ob.Bids(0), ob.Asks(0)...) {
			require.False(t, level.Amount.IsZero(), "zero level at %s after %d updates", level.Price, i)
		}
	}
}

func TestOrderBook_PriceOrdering(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	ob := NewOrderBook("BTC-USDT")

	for i := 0; i < 1000; i++ {
		side := Bid
		if i%2 == 1 {
			side = Ask
		}
		ob.ProcessUpdate(&L2Increment{
			Symbol: "BTC-USDT",
			Side:   side,
			Price:  decimal.New(rnd.Int63n(100000), -2),
			Amount: decimal.New(rnd.Int63n(10)+1, 0),
		})
	}

	bids := ob.Bids(0)
	asks := ob.Asks(0)
	require.NotEmpty(t, bids)
	require.NotEmpty(t, asks)

	bestBid, ok := ob.BestBid()
	require.True(t, ok)
	bestAsk, ok := ob.BestAsk()
	require.True(t, ok)

	for i, level := range bids {
		assert.True(t, level.Price.LessThanOrEqual(bestBid.Price))
		if i > 0 {
			assert.True(t, level.Price.LessThan(bids[i-1].Price), "bids should be strictly descending")
		}
	}
	for i, level := range asks {
		assert.True(t, level.Price.GreaterThanOrEqual(bestAsk.Price))
		if i > 0 {
			assert.True(t, level.Price.GreaterThan(asks[i-1].Price), "asks should be strictly ascending")
		}
	}
}

func TestOrderBook_EmptyBest(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")

	_, ok := ob.BestBid()
	assert.False(t, ok)
	_, ok = ob.BestAsk()
	assert.False(t, ok)
	assert.Equal(t, "OrderBook { bid: 0, ask: 0 }", ob.String())
}

func TestOrderBook_String(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))

	assert.Equal(t, "OrderBook { bid: 10000, ask: 10100 }", ob.String())
}

func TestOrderBook_ReplaceWith(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))

	rest := NewOrderBookFromLevels("BTC-USDT",
		[]SingleLot{lot(t, "500", "1"), lot(t, "400", "0")},
		[]SingleLot{lot(t, "600", "2")},
	)
	ob.ReplaceWith(rest)

	assert.Equal(t, [][]string{{"500", "1"}}, ob.TakeSnapshot(0).Bids)
	assert.Equal(t, [][]string{{"600", "2"}}, ob.TakeSnapshot(0).Asks)

	// the source must stay independent of the replaced book
	ob.ProcessUpdate(increment(t, Bid, "500", "0", false))
	assert.Equal(t, [][]string{{"500", "1"}}, rest.TakeSnapshot(0).Bids)
	assert.Empty(t, ob.TakeSnapshot(0).Bids)
}

func TestOrderBook_TakeSnapshot(t *testing.T) {
	ob := NewOrderBook("BTC-USDT")
	ob.ProcessSnapshot(testSnapshot(t))

	result := ob.TakeSnapshot(1)

	assert.Equal(t, OrderBookSource_LocalOrderBook, result.Source)
	assert.Equal(t, int64(123), result.LastUpdateId, "LastUpdateID should match")
	assert.Equal(t, [][]string{{"10000", "1"}}, result.Bids, "Bids should be limited to 1")
	assert.Equal(t, [][]string{{"10100", "1.5"}}, result.Asks, "Asks should be limited to 1")
}

func TestSerializePriceLevel(t *testing.T) {
	result := serializePriceLevel([]SingleLot{lot(t, "10000.5", "1"), lot(t, "9900", "0.25")})

	assert.Equal(t, [][]string{{"10000.5", "1"}, {"9900", "0.25"}}, result, "Result should match")
}
