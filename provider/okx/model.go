package okx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

// Sentinel prevSeqId of the initial full snapshot of the books channel.
const initialSnapshotPrevSeqID = -1

var ErrUnknownMessage = errors.New("okx: unknown websocket message")

type Stream struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type EventType string

const (
	EventLogin            EventType = "login"
	EventSubscribe        EventType = "subscribe"
	EventUnsubscribe      EventType = "unsubscribe"
	EventError            EventType = "error"
	EventChannelConnCount EventType = "channel-conn-count"
	EventNotice           EventType = "notice"
)

func (e EventType) IsKnown() bool {
	switch e {
	case EventLogin, EventSubscribe, EventUnsubscribe, EventError, EventChannelConnCount, EventNotice:
		return true
	}
	return false
}

type SubEvent struct {
	Event  EventType `json:"event"`
	Arg    *Stream   `json:"arg,omitempty"`
	Code   string    `json:"code,omitempty"`
	Msg    string    `json:"msg,omitempty"`
	ConnID string    `json:"connId"`
}

type CombinedMessage struct {
	Arg  Stream         `json:"arg"`
	Data []BookSnapshot `json:"data"`
}

// BookSnapshot is the payload of the books channel. With a prevSeqId other
// than -1 it carries only the levels changed since prevSeqId.
type BookSnapshot struct {
	Asks      []BookLevel `json:"asks"`
	Bids      []BookLevel `json:"bids"`
	Ts        Timestamp   `json:"ts"`
	Checksum  *int64      `json:"checksum,omitempty"`
	PrevSeqID *int64      `json:"prevSeqId,omitempty"`
	SeqID     int64       `json:"seqId"`
}

// IsInitial reports whether the payload is the full book sent right after subscribing.
func (s *BookSnapshot) IsInitial() bool {
	return s.PrevSeqID == nil || *s.PrevSeqID == initialSnapshotPrevSeqID
}

func (s *BookSnapshot) ToL2Snapshot(symbol string) *domain.L2Snapshot {
	return &domain.L2Snapshot{
		ExchangeTime: s.Ts.Time(),
		SequenceNo:   s.SeqID,
		Symbol:       symbol,
		Bids:         toSingleLots(s.Bids),
		Asks:         toSingleLots(s.Asks),
	}
}

// ToIncrements expands the payload into bid increments followed by ask
// increments, in received order. The last one is marked as end of batch.
func (s *BookSnapshot) ToIncrements(symbol string) []domain.MdMessage {
	increments := make([]domain.MdMessage, 0, len(s.Bids)+len(s.Asks))

	for i, level := range s.Bids {
		isEOT := i+1 == len(s.Bids) && len(s.Asks) == 0
		increments = append(increments, level.toIncrement(s, symbol, domain.Bid, isEOT))
	}
	for i, level := range s.Asks {
		increments = append(increments, level.toIncrement(s, symbol, domain.Ask, i+1 == len(s.Asks)))
	}
	return increments
}

// Timestamp is unix milliseconds sent as a decimal string.
type Timestamp uint64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	ms, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("okx: invalid ts %s: %w", data, err)
	}
	*t = Timestamp(ms)
	return nil
}

func (t Timestamp) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(t))
}

// BookLevel is [price, amount, deprecated, ordersCount].
type BookLevel struct {
	Price       decimal.Decimal
	Amount      decimal.Decimal
	Deprecated  string
	OrdersCount string
}

func (l *BookLevel) UnmarshalJSON(data []byte) error {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) < 2 {
		return fmt.Errorf("okx: book level %s has %d fields", data, len(fields))
	}

	price, err := decimal.NewFromString(fields[0])
	if err != nil {
		return fmt.Errorf("okx: invalid price %q: %w", fields[0], err)
	}
	amount, err := decimal.NewFromString(fields[1])
	if err != nil {
		return fmt.Errorf("okx: invalid amount %q: %w", fields[1], err)
	}

	*l = BookLevel{Price: price, Amount: amount}
	if len(fields) > 2 {
		l.Deprecated = fields[2]
	}
	if len(fields) > 3 {
		l.OrdersCount = fields[3]
	}
	return nil
}

func (l BookLevel) ToSingleLot() domain.SingleLot {
	return domain.SingleLot{Price: l.Price, Amount: l.Amount}
}

func (l BookLevel) toIncrement(s *BookSnapshot, symbol string, side domain.Side, isEOT bool) *domain.L2Increment {
	return &domain.L2Increment{
		ExchangeTime: s.Ts.Time(),
		SequenceNo:   s.SeqID,
		Symbol:       symbol,
		Side:         side,
		Price:        l.Price,
		Amount:       l.Amount,
		IsEOT:        isEOT,
	}
}

func toSingleLots(levels []BookLevel) []domain.SingleLot {
	lots := make([]domain.SingleLot, 0, len(levels))
	for _, level := range levels {
		lots = append(lots, level.ToSingleLot())
	}
	return lots
}

type WsRequest struct {
	Op   EventType `json:"op"`
	Args []Stream  `json:"args"`
}

func NewSubscribeRequest(channels []Stream) WsRequest {
	return WsRequest{
		Op:   EventSubscribe,
		Args: channels,
	}
}

type MessageKind int

const (
	KindSubEvent MessageKind = iota
	KindCombined
	KindPong
)

func (k MessageKind) String() string {
	switch k {
	case KindSubEvent:
		return "sub_event"
	case KindCombined:
		return "combined"
	case KindPong:
		return "pong"
	}
	return "unknown"
}

type OkxWsMessage struct {
	Kind     MessageKind
	SubEvent *SubEvent
	Combined *CombinedMessage
}

var pongMessage = []byte("pong")

// DecodeWsMessage classifies a frame by shape, in this order:
// the literal pong reply, a subscription event (has "event"), a data batch
// (has "arg" and "data"), and JSON null as a keepalive reply.
func DecodeWsMessage(data []byte) (*OkxWsMessage, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, pongMessage) {
		return &OkxWsMessage{Kind: KindPong}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessage, err)
	}

	if _, ok := fields["event"]; ok {
		var sub SubEvent
		if err := json.Unmarshal(data, &sub); err != nil {
			return nil, fmt.Errorf("okx: decode subscription event: %w", err)
		}
		if !sub.Event.IsKnown() {
			return nil, fmt.Errorf("%w: event %q", ErrUnknownMessage, sub.Event)
		}
		return &OkxWsMessage{Kind: KindSubEvent, SubEvent: &sub}, nil
	}

	_, hasArg := fields["arg"]
	_, hasData := fields["data"]
	if hasArg && hasData {
		var combined CombinedMessage
		if err := json.Unmarshal(data, &combined); err != nil {
			return nil, fmt.Errorf("okx: decode data message: %w", err)
		}
		return &OkxWsMessage{Kind: KindCombined, Combined: &combined}, nil
	}

	// null decodes into a nil map
	if fields == nil {
		return &OkxWsMessage{Kind: KindPong}, nil
	}

	return nil, fmt.Errorf("%w: %.200s", ErrUnknownMessage, data)
}

// Codec binds the stream client to the okx message schema.
type Codec struct{}

func (Codec) Decode(data []byte) (*OkxWsMessage, error) {
	return DecodeWsMessage(data)
}

func (Codec) Pong() *OkxWsMessage {
	return &OkxWsMessage{Kind: KindPong}
}
