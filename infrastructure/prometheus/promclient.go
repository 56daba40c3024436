package promclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
)

var logger = logrus.WithField("component", "promclient")

var WsReconnectsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "okx_ws_reconnects_total",
		Help: "okx websocket reconnects by trigger",
	},
	[]string{"reason"},
)

var MdMessagesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "okx_md_messages_total",
		Help: "okx market data messages by kind",
	},
	[]string{"kind"},
)

var SequenceGapsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "okx_sequence_gaps_total",
		Help: "okx order book batches that did not continue the previous sequence id",
	},
	[]string{"symbol"},
)

var BestBidGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "orderbook_best_bid",
		Help: "best bid price",
	},
	[]string{"symbol"},
)

var BestAskGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "orderbook_best_ask",
		Help: "best ask price",
	},
	[]string{"symbol"},
)

var OpenOrderBookGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "okx_open_order_book",
		Help: "okx open order book",
	},
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(WsReconnectsTotal)
	reg.MustRegister(MdMessagesTotal)
	reg.MustRegister(SequenceGapsTotal)
	reg.MustRegister(BestBidGauge)
	reg.MustRegister(BestAskGauge)
	reg.MustRegister(OpenOrderBookGauge)
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(NewRegistry(), promhttp.HandlerOpts{}))
	return mux
}

// StartPromClientServer serves /metrics on addr until ctx is done.
func StartPromClientServer(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	logger.Infof("prometheus server listening at %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// TopOfBookObserver exports book storage changes as gauges.
type TopOfBookObserver struct{}

var _ domain.BookObserver = TopOfBookObserver{}

func (TopOfBookObserver) OnTopOfBook(symbol string, bestBid domain.SingleLot, bestAsk domain.SingleLot) {
	BestBidGauge.WithLabelValues(symbol).Set(bestBid.Price.InexactFloat64())
	BestAskGauge.WithLabelValues(symbol).Set(bestAsk.Price.InexactFloat64())
}

func (TopOfBookObserver) OnBookCount(count int) {
	OpenOrderBookGauge.Set(float64(count))
}
