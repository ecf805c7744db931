package feed

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

func newTestQueue(size int) *Queue {
	return NewQueue(size, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestQueuePushAndReceive(t *testing.T) {
	q := newTestQueue(4)
	q.Push(domain.Candidate{Mint: "a"})
	q.Push(domain.Candidate{Mint: "b"})

	assert.Equal(t, "a", (<-q.C()).Mint)
	assert.Equal(t, "b", (<-q.C()).Mint)
	assert.Equal(t, int64(0), q.Dropped())
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := newTestQueue(2)
	q.Push(domain.Candidate{Mint: "a"})
	q.Push(domain.Candidate{Mint: "b"})
	q.Push(domain.Candidate{Mint: "c"})

	assert.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, "b", (<-q.C()).Mint)
	assert.Equal(t, "c", (<-q.C()).Mint)
}

func TestQueueMinimumCapacity(t *testing.T) {
	q := newTestQueue(0)
	q.Push(domain.Candidate{Mint: "a"})
	q.Push(domain.Candidate{Mint: "b"})

	require.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, "b", (<-q.C()).Mint)
}

func TestHandleMessageQueuesLaunch(t *testing.T) {
	q := newTestQueue(4)
	w := NewWSClient("ws://unused", q, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w.handleMessage([]byte(`{"event":"launch","mint":"mintA","symbol":"AAA","liquidity":42.5,"timestamp":1700000000000}`))

	c := <-q.C()
	assert.Equal(t, "mintA", c.Mint)
	assert.Equal(t, "AAA", c.Symbol)
	assert.Equal(t, 42.5, c.LiquidityEstimate)
	assert.Equal(t, int64(1700000000000), c.DiscoveredAt.UnixMilli())
}

func TestHandleMessageDropsJunk(t *testing.T) {
	q := newTestQueue(4)
	w := NewWSClient("ws://unused", q, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w.handleMessage([]byte(`not json`))
	w.handleMessage([]byte(`{"event":"heartbeat"}`))
	w.handleMessage([]byte(`{"event":"launch","symbol":"NOMINT"}`))

	select {
	case c := <-q.C():
		t.Fatalf("unexpected candidate %q", c.Mint)
	default:
	}
}
