package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-trade-engine/internal/solana"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// ProgramID is the AMM program whose logs are subscribed.
	ProgramID string

	Logger *log.Logger
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		ProgramID:         RaydiumAMMV4,
	}
}

// WSPoolSource implements PoolSource over a logsSubscribe WebSocket
// stream. Pool initializations detected in the stream are resolved to
// full transactions over RPC (for account keys) and buffered until the
// next Fetch.
type WSPoolSource struct {
	endpoint string
	config   WSConfig
	rpc      solana.RPCClient
	parser   *InitParser
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subscribed signals the initial subscription is confirmed
	subscribed    chan struct{}
	subscribeOnce sync.Once

	// events buffers discovered pools between Fetch calls
	events chan *PoolEvent

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewWSPoolSource connects to the endpoint, subscribes to AMM program
// logs, and starts streaming pool events.
func NewWSPoolSource(ctx context.Context, endpoint string, rpc solana.RPCClient, config *WSConfig) (*WSPoolSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
		if cfg.ProgramID == "" {
			cfg.ProgramID = RaydiumAMMV4
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[discovery] ", log.LstdFlags)
	}

	s := &WSPoolSource{
		endpoint:   endpoint,
		config:     cfg,
		rpc:        rpc,
		parser:     NewInitParser(),
		logger:     logger,
		subscribed: make(chan struct{}),
		events:     make(chan *PoolEvent, 1024),
		done:       make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// Compile-time interface check.
var _ PoolSource = (*WSPoolSource)(nil)

// Fetch drains buffered pool events without blocking.
func (s *WSPoolSource) Fetch(ctx context.Context) ([]*PoolEvent, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("source closed")
	}

	var out []*PoolEvent
	for {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		case <-ctx.Done():
			return out, ctx.Err()
		default:
			return out, nil
		}
	}
}

// Close closes the WebSocket connection and stops the read loop.
func (s *WSPoolSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

// connect establishes the WebSocket connection.
func (s *WSPoolSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// subscribe sends the logsSubscribe request for the AMM program.
func (s *WSPoolSource) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{s.config.ProgramID}},
			map[string]string{"commitment": "confirmed"},
		},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads messages and converts pool initializations into events.
func (s *WSPoolSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay *= 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect re-dials and resubscribes after a connection failure.
func (s *WSPoolSource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	if err := s.subscribe(); err != nil {
		s.logger.Printf("resubscribe failed: %v", err)
	}
}

// handleMessage processes one incoming WebSocket message.
func (s *WSPoolSource) handleMessage(message []byte) {
	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err == nil && resp.Result > 0 {
		s.subscribeOnce.Do(func() { close(s.subscribed) })
		return
	}

	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" {
		return
	}
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	if value.Err != nil {
		return // failed transactions never created a pool
	}
	if !s.parser.isPoolInit(value.Logs) {
		return
	}

	var slot int64
	if notif.Params.Result.Context != nil {
		slot = notif.Params.Result.Context.Slot
	}

	// Account keys are not in the log stream; resolve the transaction.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tx, err := s.rpc.GetTransaction(ctx, value.Signature)
	cancel()
	if err != nil || tx == nil || tx.Message == nil {
		s.logger.Printf("resolve pool init tx %s: %v", value.Signature, err)
		return
	}

	ev := s.parser.ParsePoolInit(value.Logs, tx.Message.AccountKeys, value.Signature, slot, tx.BlockTime)
	if ev == nil {
		return
	}

	// Drop oldest-first is unacceptable for sniping; drop the new event
	// if the buffer is full and note it. The scanner will still see the
	// pool on restart via fresh subscriptions.
	select {
	case s.events <- ev:
	case <-s.done:
	default:
		s.logger.Printf("event buffer full, dropping pool %s", ev.Pool)
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSPoolSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"` // subscription ID
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
