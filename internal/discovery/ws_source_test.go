package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"solana-trade-engine/internal/solana"
	rpcstub "solana-trade-engine/internal/solana/stub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSPoolSource_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSPoolSource(context.Background(), wsURL(server), rpcstub.NewRPCClient(), nil)
	if err != nil {
		t.Fatalf("NewWSPoolSource: %v", err)
	}
	defer source.Close()

	if source.closed.Load() {
		t.Error("source should not be closed")
	}
}

func TestWSPoolSource_PoolInitFlow(t *testing.T) {
	rpc := rpcstub.NewRPCClient()
	rpc.Transactions["initsig"] = &solana.Transaction{
		Slot:      100,
		Signature: "initsig",
		BlockTime: 1_700_000_000,
		Message: &solana.TransactionMessage{
			AccountKeys: initAccountKeys("pool1", "MintA", WSOL),
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}

		// Send subscription confirmation
		if err := c.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 777}); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		// Send a pool init notification, then an unrelated swap.
		notifs := []wsNotification{
			{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: 777,
					Result: wsNotificationResult{
						Context: &wsContext{Slot: 100},
						Value: wsLogsValue{
							Signature: "initsig",
							Logs: []string{
								"Program " + RaydiumAMMV4 + " invoke [1]",
								"Program log: initialize2: InitializeInstruction2 { nonce: 254 }",
							},
						},
					},
				},
			},
			{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: 777,
					Result: wsNotificationResult{
						Context: &wsContext{Slot: 101},
						Value: wsLogsValue{
							Signature: "swapsig",
							Logs:      []string{"Program log: ray_log: A9xyz"},
						},
					},
				},
			},
		}
		for _, n := range notifs {
			if err := c.WriteJSON(n); err != nil {
				t.Errorf("write notification: %v", err)
				return
			}
		}

		// Keep connection open
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSPoolSource(context.Background(), wsURL(server), rpc, nil)
	if err != nil {
		t.Fatalf("NewWSPoolSource: %v", err)
	}
	defer source.Close()

	// Poll until the event arrives; the notification passes through the
	// read loop and an RPC resolution first.
	deadline := time.After(2 * time.Second)
	var events []*PoolEvent
	for len(events) == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for pool event")
		case <-time.After(10 * time.Millisecond):
		}

		batch, err := source.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		events = append(events, batch...)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Pool != "pool1" || ev.Mint != "MintA" || ev.TxSignature != "initsig" {
		t.Errorf("event mismatch: %+v", ev)
	}
	if ev.Timestamp != 1_700_000_000 {
		t.Errorf("timestamp not taken from resolved transaction: %d", ev.Timestamp)
	}
}

func TestWSPoolSource_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()

	source, err := NewWSPoolSource(context.Background(), wsURL(server), rpcstub.NewRPCClient(), nil)
	if err != nil {
		t.Fatalf("NewWSPoolSource: %v", err)
	}

	if err := source.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !source.closed.Load() {
		t.Error("source should be closed")
	}

	// Double close should be safe
	if err := source.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}

	if _, err := source.Fetch(context.Background()); err == nil {
		t.Error("expected error fetching after close")
	}
}
