package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price and Amount are exact decimals, never floats.
type (
	Price  = decimal.Decimal
	Amount = decimal.Decimal
)

type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return "unknown"
}

// SingleLot is one depth level.
type SingleLot struct {
	Price  Price
	Amount Amount
}

func NewSingleLot(price, amount string) (SingleLot, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return SingleLot{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return SingleLot{}, err
	}
	return SingleLot{Price: p, Amount: a}, nil
}

// MdMessage is a normalized market data event: either *L2Snapshot or *L2Increment.
type MdMessage interface {
	Instrument() string
	isMdMessage()
}

// L2Snapshot replaces both sides of a book.
// ExchangeTime is zero and SequenceNo is 0 when the source did not provide them.
type L2Snapshot struct {
	ExchangeTime time.Time
	SequenceNo   int64
	Symbol       string
	Bids         []SingleLot
	Asks         []SingleLot
}

func (s *L2Snapshot) Instrument() string { return s.Symbol }
func (*L2Snapshot) isMdMessage()         {}

// L2Increment upserts one price level, or deletes it when Amount is zero.
// IsEOT marks the last increment of a batch.
type L2Increment struct {
	ExchangeTime time.Time
	SequenceNo   int64
	Symbol       string
	Side         Side
	Price        Price
	Amount       Amount
	IsEOT        bool
}

func (i *L2Increment) Instrument() string { return i.Symbol }
func (*L2Increment) isMdMessage()          {}
