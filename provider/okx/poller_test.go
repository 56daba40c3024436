package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spooky-finn/go-okx-md-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(t *testing.T, body string) *Poller {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, orderBookPath, r.URL.Path)
		assert.Equal(t, "BTC-USDT", r.URL.Query().Get("instId"))
		assert.Equal(t, "400", r.URL.Query().Get("sz"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	config := DefaultPollerConfig()
	config.HTTPURL = server.URL + "/"
	return NewPoller(config)
}

func TestPoller_GetOrderBook(t *testing.T) {
	poller := newTestPoller(t, `{
		"code": "0",
		"msg": "",
		"data": [{
			"asks": [["41006.8", "0.60038921", "0", "1"], ["41007", "0", "0", "0"]],
			"bids": [["41006.3", "0.30178218", "0", "2"]],
			"ts": "1629966436396"
		}]
	}`)

	ob, err := poller.GetOrderBook(context.Background(), "BTC-USDT")
	require.NoError(t, err)

	snapshot := ob.TakeSnapshot(0)
	assert.Equal(t, "BTC-USDT", ob.Symbol)
	assert.Equal(t, [][]string{{"41006.3", "0.30178218"}}, snapshot.Bids)
	assert.Equal(t, [][]string{{"41006.8", "0.60038921"}}, snapshot.Asks, "zero levels should be dropped")
	assert.Equal(t, int64(1629966436396), ob.LastUpdateTime.UnixMilli())
}

func TestPoller_NotFound(t *testing.T) {
	poller := newTestPoller(t, `{"code":"0","msg":"","data":[]}`)

	_, err := poller.GetOrderBook(context.Background(), "BTC-USDT")

	assert.ErrorIs(t, err, domain.ErrOrderBookNotFound)
}

func TestPoller_ExchangeError(t *testing.T) {
	poller := newTestPoller(t, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)

	_, err := poller.GetOrderBook(context.Background(), "BTC-USDT")

	var okxErr *OkxError
	require.True(t, errors.As(err, &okxErr))
	assert.Equal(t, "51001", okxErr.Code)
	assert.Equal(t, "Instrument ID does not exist", okxErr.Msg)
	assert.EqualError(t, err, "51001:Instrument ID does not exist")
	assert.NotErrorIs(t, err, domain.ErrOrderBookNotFound)
}

func TestPoller_InvalidBody(t *testing.T) {
	poller := newTestPoller(t, `<html>bad gateway</html>`)

	_, err := poller.GetOrderBook(context.Background(), "BTC-USDT")

	assert.Error(t, err)
}

func TestOkxResponse_IntoResult(t *testing.T) {
	ok := OkxResponse[int]{Code: "0", Data: []int{1, 2}}
	data, err := ok.IntoResult()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, data)

	failed := OkxResponse[int]{Code: "50011", Msg: "Rate limit reached"}
	_, err = failed.IntoResult()
	assert.EqualError(t, err, "50011:Rate limit reached")
}
