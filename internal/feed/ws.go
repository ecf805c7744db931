// Package feed implements the discovery WebSocket client that streams
// newly-launched asset candidates into the entry pipeline.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/snipebot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// WSClient consumes the discovery feed and pushes candidates into the queue.
// It manages the connection lifecycle and reconnects with exponential
// backoff on disconnect.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	queue  *Queue
	logger *slog.Logger

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a discovery client for the given WebSocket URL,
// delivering candidates into queue.
func NewWSClient(wsURL string, queue *Queue, logger *slog.Logger) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		queue:  queue,
		logger: logger.With(slog.String("component", "discovery_feed")),
		done:   make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("feed: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}

	w.conn = conn

	// Set up pong handler for keep-alive.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Each loop owns the connection it was started for; after a reconnect
	// the dying loops must not touch the replacement.
	go w.readLoop(conn)
	go w.pingLoop(conn)

	w.logger.Info("discovery feed connected", slog.String("url", w.wsURL))
	return nil
}

// Start connects, falling back to background retries with backoff when the
// first dial fails. Later disconnects reconnect automatically either way.
func (w *WSClient) Start(ctx context.Context) {
	if err := w.Connect(ctx); err != nil {
		w.logger.Warn("initial connect failed, retrying in background",
			slog.String("error", err.Error()),
		)
		go w.reconnect()
	}
}

// Close shuts down the connection and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// launchMessage is the wire format of one discovery event.
type launchMessage struct {
	Event     string  `json:"event"`
	Mint      string  `json:"mint"`
	Symbol    string  `json:"symbol"`
	Liquidity float64 `json:"liquidity"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// readLoop reads discovery events from conn until disconnect, then
// reconnects with backoff. It only ever closes its own conn, never the
// replacement installed by a later Connect.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}

			w.logger.Warn("discovery feed disconnected",
				slog.String("error", err.Error()),
			)
			w.reconnect()
			return // a fresh readLoop owns the replacement connection
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic pings on conn to keep it alive. A write failure
// ends the loop; the read side notices the dead connection and reconnects.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses one discovery event and queues the candidate.
// Unparseable or non-launch messages are dropped silently.
func (w *WSClient) handleMessage(raw []byte) {
	var msg launchMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Event != "" && msg.Event != "launch" {
		return
	}
	if msg.Mint == "" {
		return
	}

	discovered := time.Now().UTC()
	if msg.Timestamp > 0 {
		discovered = time.UnixMilli(msg.Timestamp).UTC()
	}

	w.queue.Push(domain.Candidate{
		Mint:              msg.Mint,
		Symbol:            msg.Symbol,
		LiquidityEstimate: msg.Liquidity,
		DiscoveredAt:      discovered,
	})
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
