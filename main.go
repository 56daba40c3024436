package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spooky-finn/go-okx-md-bridge/config"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
	"github.com/spooky-finn/go-okx-md-bridge/infrastructure/logger"
	promclient "github.com/spooky-finn/go-okx-md-bridge/infrastructure/prometheus"
	"github.com/spooky-finn/go-okx-md-bridge/provider/okx"
	"github.com/spooky-finn/go-okx-md-bridge/usecase"
)

var log = logrus.WithField("component", "main")

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	logFile, err := logger.Setup(conf.Logger())
	if err != nil {
		log.Fatalf("failed to setup logger: %s", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf); err != nil {
		log.Errorf("md bridge stopped: %s", err)
		logFile.Close()
		os.Exit(1)
	}
	log.Info("md bridge stopped")
}

func run(ctx context.Context, conf *config.Config) error {
	if conf.Metrics.Addr != "" {
		go func() {
			if err := promclient.StartPromClientServer(ctx, conf.Metrics.Addr); err != nil {
				log.Errorf("prometheus server failed: %s", err)
			}
		}()
	}

	storage := domain.NewStorageWithObserver(promclient.TopOfBookObserver{})

	// seeded books serve reads until the first stream snapshot of each symbol replaces them
	if conf.Okx.SeedFromRest {
		if err := usecase.SeedBooks(ctx, okx.NewPoller(conf.Poller()), storage, conf.Okx.Tickers); err != nil {
			// cancelled while seeding
			return nil
		}
	}

	conn, err := okx.NewOkxMdConnection(ctx, conf.Okx.Tickers, conf.MdConnection())
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("subscribed to %s %v", conf.Okx.Channel, conf.Okx.Tickers)

	pipeline := usecase.NewMdPipeline(conn, storage)

	if interval := conf.ReportInterval(); interval > 0 {
		go report(ctx, usecase.NewOrderBookSnapshotUseCase(storage, nil), conf.Okx.Tickers, interval)
	}

	return pipeline.Run(ctx)
}

// report logs the top of every subscribed book.
func report(ctx context.Context, snapshots *usecase.OrderBookSnapshotUseCase, symbols []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, symbol := range symbols {
			snapshot, err := snapshots.GetOrderBookSnapshot(ctx, symbol, 1)
			if err != nil {
				log.Infof("%s: %s", symbol, err)
				continue
			}
			log.WithFields(logrus.Fields{
				"symbol":       symbol,
				"lastUpdateId": snapshot.LastUpdateId,
				"bid":          snapshot.Bids,
				"ask":          snapshot.Asks,
			}).Info("top of book")
		}
	}
}
