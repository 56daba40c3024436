package promclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lot(t *testing.T, price string) domain.SingleLot {
	l, err := domain.NewSingleLot(price, "1")
	require.NoError(t, err)
	return l
}

func TestTopOfBookObserver(t *testing.T) {
	observer := TopOfBookObserver{}

	observer.OnTopOfBook("BTC-USDT", lot(t, "10000.5"), lot(t, "10001"))
	observer.OnBookCount(2)

	assert.Equal(t, 10000.5, testutil.ToFloat64(BestBidGauge.WithLabelValues("BTC-USDT")))
	assert.Equal(t, 10001.0, testutil.ToFloat64(BestAskGauge.WithLabelValues("BTC-USDT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(OpenOrderBookGauge))
}

func TestTopOfBookObserver_EmptySide(t *testing.T) {
	observer := TopOfBookObserver{}

	observer.OnTopOfBook("ETH-USDT", domain.SingleLot{}, lot(t, "2000"))

	assert.Equal(t, 0.0, testutil.ToFloat64(BestBidGauge.WithLabelValues("ETH-USDT")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(BestAskGauge.WithLabelValues("ETH-USDT")))
}

func TestNewHandler(t *testing.T) {
	MdMessagesTotal.WithLabelValues("snapshot").Inc()

	server := httptest.NewServer(NewHandler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `okx_md_messages_total{kind="snapshot"}`)
	assert.Contains(t, string(body), "okx_open_order_book")
	assert.Contains(t, string(body), "go_goroutines")
}
