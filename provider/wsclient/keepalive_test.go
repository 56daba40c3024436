package wsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func drain(c <-chan struct{}) int {
	n := 0
	for {
		select {
		case <-c:
			n++
		default:
			return n
		}
	}
}

func TestKeepalive_Signals(t *testing.T) {
	k := NewKeepalive(10 * time.Millisecond)
	defer k.Stop()

	select {
	case <-k.C():
	case <-time.After(time.Second):
		t.Fatal("no keepalive signal")
	}
}

func TestKeepalive_CoalescesUnconsumedTicks(t *testing.T) {
	k := NewKeepalive(20 * time.Millisecond)

	// several ticks pass without a consumer
	time.Sleep(150 * time.Millisecond)
	k.Stop()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, drain(k.C()), "at most one signal should be pending")
}

func TestKeepalive_Stop(t *testing.T) {
	k := NewKeepalive(10 * time.Millisecond)
	k.Stop()
	k.Stop()

	time.Sleep(20 * time.Millisecond)
	drain(k.C())
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, drain(k.C()), "no signals after Stop")
}
