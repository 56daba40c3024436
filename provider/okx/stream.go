package okx

const (
	// books: 400 depth levels are pushed in the initial full snapshot,
	// changes are pushed every 100 ms.
	ChannelBooks = "books"
)

// OkxStream describes the order book subscriptions of one connection.
// OKX recommends fewer than 30 channels per connection for the books channel.
type OkxStream struct {
	Tickers []string
	Channel string
	// TickersPerRequest bounds the instruments of one subscribe frame. Zero sends all in one frame.
	TickersPerRequest int
}

func NewOkxStream(tickers []string, channel string, tickersPerRequest int) OkxStream {
	if channel == "" {
		channel = ChannelBooks
	}
	return OkxStream{
		Tickers:           tickers,
		Channel:           channel,
		TickersPerRequest: tickersPerRequest,
	}
}

func (s OkxStream) SubscribeRequests() []WsRequest {
	size := s.TickersPerRequest
	if size <= 0 || size > len(s.Tickers) {
		size = len(s.Tickers)
	}

	var requests []WsRequest
	for start := 0; start < len(s.Tickers); start += size {
		end := min(start+size, len(s.Tickers))

		channels := make([]Stream, 0, end-start)
		for _, instID := range s.Tickers[start:end] {
			channels = append(channels, Stream{Channel: s.Channel, InstID: instID})
		}
		requests = append(requests, NewSubscribeRequest(channels))
	}
	return requests
}
