package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

const orderBookPath = "/api/v5/market/books"

// OkxResponse is the envelope of every REST response. An empty msg means success.
type OkxResponse[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func (r *OkxResponse[T]) IntoResult() ([]T, error) {
	if r.Msg != "" {
		return nil, &OkxError{Code: r.Code, Msg: r.Msg}
	}
	return r.Data, nil
}

// OkxError is an error reported by the exchange.
type OkxError struct {
	Code string
	Msg  string
}

func (e *OkxError) Error() string {
	return fmt.Sprintf("%s:%s", e.Code, e.Msg)
}

// RestOrderBook is one entry of the market books response.
type RestOrderBook struct {
	Asks []BookLevel `json:"asks"`
	Bids []BookLevel `json:"bids"`
	Ts   Timestamp   `json:"ts"`
}

type Poller struct {
	config PollerConfig
	client *http.Client
}

var _ domain.ExchangePoller = (*Poller)(nil)

func NewPoller(config PollerConfig) *Poller {
	return &Poller{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// GetOrderBook fetches the full book of symbol. It returns domain.ErrOrderBookNotFound
// when the exchange returns no book and *OkxError when it reports an error.
func (p *Poller) GetOrderBook(ctx context.Context, symbol string) (*domain.OrderBook, error) {
	query := url.Values{}
	query.Set("instId", symbol)
	if p.config.BookDepth > 0 {
		query.Set("sz", strconv.Itoa(p.config.BookDepth))
	}
	endpoint := strings.TrimRight(p.config.HTTPURL, "/") + orderBookPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order book snapshot: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response OkxResponse[RestOrderBook]
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w, status: %s, response: %.200s", err, resp.Status, body)
	}

	books, err := response.IntoResult()
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: okx returned no order book for %s", domain.ErrOrderBookNotFound, symbol)
	}

	book := books[0]
	ob := domain.NewOrderBookFromLevels(symbol, toSingleLots(book.Bids), toSingleLots(book.Asks))
	if ts := book.Ts.Time(); !ts.IsZero() {
		ob.LastUpdateTime = ts
	}
	return ob, nil
}
