package standx

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridx/logger"
)

const streamURL = "wss://perps.standx.com/ws-stream/v1"

const (
	wsMaxRetries = 5
	wsRetryDelay = 5 * time.Second
)

// OrderUpdate is an order event from the StandX stream.
type OrderUpdate struct {
	Symbol       string `json:"symbol"`
	ClOrdID      string `json:"cl_ord_id"`
	Status       string `json:"status"` // "filled", "canceled", ...
	Side         string `json:"side"`
	Qty          string `json:"qty"`
	Price        string `json:"price"`
	FillQty      string `json:"fill_qty"`
	FillAvgPrice string `json:"fill_avg_price"`
}

// streamMessage is the envelope of every stream frame.
type streamMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// StreamClient maintains the authenticated StandX order stream and delivers
// order updates to a callback. The grid loop does not depend on it — every
// cycle re-queries REST state — it exists to report fills as they happen.
type StreamClient struct {
	auth     *Auth
	url      string
	onUpdate func(OrderUpdate)

	mu     sync.Mutex
	conn   *websocket.Conn
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStreamClient creates the order stream client. onUpdate is invoked for
// every order-channel event; it must not block for long.
func NewStreamClient(auth *Auth, onUpdate func(OrderUpdate)) *StreamClient {
	return &StreamClient{
		auth:     auth,
		url:      streamURL,
		onUpdate: onUpdate,
		stopCh:   make(chan struct{}),
	}
}

// Start connects in the background, reconnecting on failure up to the
// retry limit.
func (s *StreamClient) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop closes the connection and waits for the read loop to exit.
func (s *StreamClient) Stop() {
	close(s.stopCh)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.Info("📡 StandX order stream disconnected")
}

func (s *StreamClient) run() {
	defer s.wg.Done()

	retries := 0
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if err := s.connectAndListen(); err != nil {
			retries++
			if retries >= wsMaxRetries {
				logger.Errorf("❌ StandX order stream gave up after %d attempts: %v", retries, err)
				return
			}
			logger.Warnf("⚠️  StandX order stream error (attempt %d/%d): %v", retries, wsMaxRetries, err)

			select {
			case <-s.stopCh:
				return
			case <-time.After(wsRetryDelay):
			}
			continue
		}

		// Clean listen exit means Stop was called
		return
	}
}

func (s *StreamClient) connectAndListen() error {
	token, err := s.auth.Authenticate()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Authenticate and subscribe to the order and position channels
	authMsg := map[string]interface{}{
		"auth": map[string]interface{}{
			"token": token,
			"streams": []map[string]string{
				{"channel": "order"},
				{"channel": "position"},
			},
		},
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		conn.Close()
		return err
	}

	logger.Info("📡 StandX order stream connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return nil
			default:
				return err
			}
		}
		s.handleMessage(raw)
	}
}

func (s *StreamClient) handleMessage(raw []byte) {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warnf("⚠️  Failed to parse stream message: %v", err)
		return
	}

	// Position channel and auth acks are ignored; the grid loop queries
	// positions itself
	if msg.Channel != "order" || s.onUpdate == nil {
		return
	}

	var update OrderUpdate
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		logger.Warnf("⚠️  Failed to parse order update: %v", err)
		return
	}
	s.onUpdate(update)
}
