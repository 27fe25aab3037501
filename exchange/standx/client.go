package standx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gridx/logger"
	"gridx/trader/types"
)

const apiBaseURL = "https://perps.standx.com/api"

// defaultTickSize is used when query_symbol_info returns nothing usable.
const defaultTickSize = 0.01

// Client implements types.Exchange against the StandX perps API. Every
// trading call carries the JWT bearer token and the ED25519 request
// signature headers.
type Client struct {
	auth    *Auth
	baseURL string
	client  *http.Client
}

// NewClient builds the client and performs the signin handshake eagerly so
// credential problems surface at startup, before the trading loop runs.
func NewClient(privateKeyHex, chain string) (*Client, error) {
	auth, err := NewAuth(privateKeyHex, chain)
	if err != nil {
		return nil, err
	}

	c := &Client{
		auth:    auth,
		baseURL: apiBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	if _, err := auth.Authenticate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Auth exposes the authenticator for the order stream.
func (c *Client) Auth() *Auth {
	return c.auth
}

// GetTickSize returns the exchange tick size for the symbol, falling back
// to the documented default when the response is missing or malformed.
func (c *Client) GetTickSize(symbol string) (float64, error) {
	query := url.Values{"symbol": {symbol}}
	body, err := c.getPublic("query_symbol_info", query)
	if err != nil {
		return defaultTickSize, fmt.Errorf("failed to query symbol info: %w", err)
	}

	infos, err := decodeList[symbolInfo](body)
	if err != nil || len(infos) == 0 {
		logger.Warnf("⚠️  StandX symbol info malformed for %s, using default tick size %.2f", symbol, defaultTickSize)
		return defaultTickSize, nil
	}

	tick, err := strconv.ParseFloat(infos[0].TickSize, 64)
	if err != nil || tick <= 0 {
		return defaultTickSize, nil
	}
	return tick, nil
}

// GetMarketPrice returns the last traded price for the symbol.
func (c *Client) GetMarketPrice(symbol string) (float64, error) {
	query := url.Values{"symbol": {symbol}}
	body, err := c.getPublic("query_symbol_price", query)
	if err != nil {
		return 0, fmt.Errorf("failed to query price: %w", err)
	}

	prices, err := decodeList[priceInfo](body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse price response: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].LastPrice, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid last price %q for %s", prices[0].LastPrice, symbol)
	}
	return price, nil
}

// GetOpenOrders returns the account's resting orders for the symbol.
func (c *Client) GetOpenOrders(symbol string) ([]types.OpenOrder, error) {
	query := url.Values{"symbol": {symbol}}
	body, err := c.getSigned("query_open_orders", query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open orders: %w", err)
	}

	orders, err := decodeList[orderInfo](body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse open orders: %w", err)
	}

	result := make([]types.OpenOrder, 0, len(orders))
	for _, order := range orders {
		// query_open_orders returns only open orders, but check anyway
		if order.Status != "open" && order.Status != "new" {
			continue
		}
		price, _ := strconv.ParseFloat(order.Price, 64)
		qty, _ := strconv.ParseFloat(order.Qty, 64)
		result = append(result, types.OpenOrder{
			OrderID:  order.ClOrdID,
			Symbol:   order.Symbol,
			Side:     order.Side,
			Price:    price,
			Quantity: qty,
			Status:   order.Status,
		})
	}
	return result, nil
}

// PlaceLimitOrder rests a GTC limit order.
func (c *Client) PlaceLimitOrder(req *types.LimitOrderRequest) (*types.OrderResult, error) {
	payload := newOrderRequest{
		Symbol:      req.Symbol,
		Side:        req.Side,
		OrderType:   "limit",
		Qty:         strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		Price:       strconv.FormatFloat(req.Price, 'f', -1, 64),
		TimeInForce: "gtc",
		ReduceOnly:  false,
	}

	ack, err := c.submitOrder(payload)
	if err != nil {
		return nil, err
	}
	return &types.OrderResult{
		OrderID:  ack.ClOrdID,
		Side:     req.Side,
		Price:    req.Price,
		Quantity: req.Quantity,
		Status:   "pending",
	}, nil
}

// PlaceMarketOrder submits an IOC market order.
func (c *Client) PlaceMarketOrder(symbol, side string, quantity float64) (*types.OrderResult, error) {
	payload := newOrderRequest{
		Symbol:      symbol,
		Side:        side,
		OrderType:   "market",
		Qty:         strconv.FormatFloat(quantity, 'f', -1, 64),
		TimeInForce: "ioc",
		ReduceOnly:  false,
	}

	ack, err := c.submitOrder(payload)
	if err != nil {
		return nil, err
	}
	return &types.OrderResult{
		OrderID:  ack.ClOrdID,
		Side:     side,
		Quantity: quantity,
		Status:   "pending",
	}, nil
}

// CancelOrder cancels a resting order by client order id.
func (c *Client) CancelOrder(symbol, orderID string) error {
	_, err := c.postSigned("cancel_order", cancelOrderRequest{ClOrdID: orderID})
	if err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return nil
}

// GetPosition returns the signed net position for the symbol.
func (c *Client) GetPosition(symbol string) (float64, error) {
	query := url.Values{"symbol": {symbol}}
	body, err := c.getSigned("query_positions", query)
	if err != nil {
		return 0, fmt.Errorf("failed to query positions: %w", err)
	}

	positions, err := decodeList[positionInfo](body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse positions: %w", err)
	}

	total := 0.0
	for _, pos := range positions {
		if pos.Symbol != symbol {
			continue
		}
		qty, err := strconv.ParseFloat(pos.Qty, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid position qty %q: %w", pos.Qty, err)
		}
		total += qty
	}
	return total, nil
}

func (c *Client) submitOrder(payload newOrderRequest) (*newOrderResponse, error) {
	body, err := c.postSigned("new_order", payload)
	if err != nil {
		return nil, fmt.Errorf("order placement failed: %w", err)
	}

	var ack newOrderResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("failed to parse order ack: %w", err)
	}
	return &ack, nil
}

// getPublic issues an unauthenticated GET (market data endpoints).
func (c *Client) getPublic(path string, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// getSigned issues an authenticated GET; the signature covers the sorted
// query string.
func (c *Client) getSigned(path string, query url.Values) ([]byte, error) {
	token, err := c.auth.Authenticate()
	if err != nil {
		return nil, err
	}

	queryStr := query.Encode() // sorted by key, matching the signing rule
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, queryStr)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range c.auth.SignRequest(queryStr) {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

// postSigned issues an authenticated POST; the signature covers the exact
// JSON body bytes.
func (c *Client) postSigned(path string, payload interface{}) ([]byte, error) {
	token, err := c.auth.Authenticate()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	for k, v := range c.auth.SignRequest(string(data)) {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
