package okx

import "time"

const (
	DefaultWsURL   = "wss://ws.okx.com:8443/ws/v5/public"
	DefaultHTTPURL = "https://www.okx.com"
)

type MdConnectionConfig struct {
	WsURL                string
	Channel              string
	ChannelTickersAmount int
	PingFrequency        time.Duration
	SubscribeInterval    time.Duration
	ReconnectGrace       time.Duration
	MaxReconnectAttempts int
	RateLimitCooldown    time.Duration
	ReadTimeout          time.Duration
	// ResyncOnGap reconnects when a batch does not continue the previous one,
	// so that fresh snapshots are sent. When false the batch is applied anyway.
	ResyncOnGap bool
}

func DefaultMdConnectionConfig() MdConnectionConfig {
	return MdConnectionConfig{
		WsURL:                DefaultWsURL,
		Channel:              ChannelBooks,
		ChannelTickersAmount: 60,
		PingFrequency:        3 * time.Second,
		SubscribeInterval:    100 * time.Millisecond,
		ReconnectGrace:       time.Second,
		MaxReconnectAttempts: 5,
		RateLimitCooldown:    time.Minute,
		ReadTimeout:          30 * time.Second,
		ResyncOnGap:          true,
	}
}

type PollerConfig struct {
	HTTPURL string
	// BookDepth is the sz parameter, at most 400.
	BookDepth int
	Timeout   time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		HTTPURL:   DefaultHTTPURL,
		BookDepth: 400,
		Timeout:   10 * time.Second,
	}
}
