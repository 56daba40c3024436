package domain

import (
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "orderbook-storage")

var ErrOrderBookNotFound = errors.New("order book not found")

// Storage routes normalized events to one OrderBook per symbol and is the
// only writer of those books. Reads are safe from other goroutines.
type Storage struct {
	mu         sync.RWMutex
	orderBooks map[string]*OrderBook
	observer   BookObserver
}

func NewStorage() *Storage {
	return &Storage{
		orderBooks: make(map[string]*OrderBook),
	}
}

// NewStorageWithObserver reports the top of book after every snapshot and
// every end-of-batch increment.
func NewStorageWithObserver(observer BookObserver) *Storage {
	s := NewStorage()
	s.observer = observer
	return s
}

func (s *Storage) OnEvent(message MdMessage) {
	switch m := message.(type) {
	case *L2Snapshot:
		ob := s.bookFor(m.Symbol)
		ob.ProcessSnapshot(m)
		s.notify(ob)
	case *L2Increment:
		ob := s.bookFor(m.Symbol)
		ob.ProcessUpdate(m)
		if m.IsEOT {
			s.notify(ob)
		}
	default:
		logger.Warnf("unsupported md message %T", message)
	}
}

// OnFullBook replaces the book of symbol with a REST-sourced one.
func (s *Storage) OnFullBook(symbol string, book *OrderBook) {
	ob := s.bookFor(symbol)
	ob.ReplaceWith(book)
	s.notify(ob)
}

func (s *Storage) Get(symbol string) (*OrderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ob, ok := s.orderBooks[symbol]
	if !ok {
		return nil, ErrOrderBookNotFound
	}
	return ob, nil
}

func (s *Storage) Symbols() []string {
	s.mu.RLock()
	symbols := make([]string, 0, len(s.orderBooks))
	for symbol := range s.orderBooks {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()

	sort.Strings(symbols)
	return symbols
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orderBooks)
}

func (s *Storage) bookFor(symbol string) *OrderBook {
	s.mu.RLock()
	ob, ok := s.orderBooks[symbol]
	s.mu.RUnlock()
	if ok {
		return ob
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ob, ok = s.orderBooks[symbol]; ok {
		return ob
	}
	ob = NewOrderBook(symbol)
	s.orderBooks[symbol] = ob
	logger.Infof("order book for %s is added to the runtime storage", symbol)

	if s.observer != nil {
		s.observer.OnBookCount(len(s.orderBooks))
	}
	return ob
}

func (s *Storage) notify(ob *OrderBook) {
	if s.observer == nil {
		return
	}
	bid, _ := ob.BestBid()
	ask, _ := ob.BestAsk()
	s.observer.OnTopOfBook(ob.Symbol, bid, ask)
}
