package wsclient

import (
	"sync"
	"time"
)

// Keepalive signals "time to ping" on a fixed period. At most one signal is
// pending; a tick that finds the slot taken is dropped.
type Keepalive struct {
	c        chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewKeepalive(period time.Duration) *Keepalive {
	k := &Keepalive{
		c:    make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go k.run(period)
	return k
}

func (k *Keepalive) C() <-chan struct{} {
	return k.c
}

func (k *Keepalive) Stop() {
	k.stopOnce.Do(func() {
		close(k.stop)
	})
}

func (k *Keepalive) run(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			select {
			case k.c <- struct{}{}:
			default:
			}
		}
	}
}
