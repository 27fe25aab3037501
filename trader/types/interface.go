package types

// OpenOrder represents a resting order on the exchange. The exchange owns
// these records; the controller only ever reads them.
type OpenOrder struct {
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"` // "buy" or "sell"
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Status   string  `json:"status"` // "open" or "new"
}

// LimitOrderRequest is a request to rest a limit order at a grid level.
type LimitOrderRequest struct {
	Symbol   string
	Side     string // "buy" or "sell"
	Price    float64
	Quantity float64
}

// OrderResult is the exchange acknowledgement for a placed order.
type OrderResult struct {
	OrderID  string
	Side     string
	Price    float64
	Quantity float64
	Status   string
}

// Exchange is the unified exchange surface the grid controller drives.
// Implementations block on each call; the controller imposes no deadline
// of its own beyond what the transport enforces.
type Exchange interface {
	// GetMarketPrice returns the current price for the symbol.
	GetMarketPrice(symbol string) (float64, error)

	// GetOpenOrders returns the account's resting orders for the symbol.
	GetOpenOrders(symbol string) ([]OpenOrder, error)

	// PlaceLimitOrder rests a GTC limit order.
	PlaceLimitOrder(req *LimitOrderRequest) (*OrderResult, error)

	// PlaceMarketOrder submits an IOC market order, used to flatten
	// accidental positions.
	PlaceMarketOrder(symbol, side string, quantity float64) (*OrderResult, error)

	// CancelOrder cancels a single resting order by id.
	CancelOrder(symbol, orderID string) error

	// GetPosition returns the signed net position for the symbol
	// (positive = long, negative = short).
	GetPosition(symbol string) (float64, error)
}
