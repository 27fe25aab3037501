package standx

import "encoding/json"

// symbolInfo is one entry of the query_symbol_info response.
type symbolInfo struct {
	Symbol   string `json:"symbol"`
	TickSize string `json:"tick_size"`
}

// priceInfo is one entry of the query_symbol_price response.
type priceInfo struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last_price"`
	MarkPrice string `json:"mark_price"`
}

// orderInfo is the wire shape of an order, shared by query_open_orders and
// the order stream. StandX identifies orders by client order id.
type orderInfo struct {
	ClOrdID      string `json:"cl_ord_id"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"` // "buy" / "sell"
	OrderType    string `json:"order_type"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Status       string `json:"status"` // "open", "new", "filled", "canceled"
	FillQty      string `json:"fill_qty"`
	FillAvgPrice string `json:"fill_avg_price"`
}

// positionInfo is one entry of the query_positions response. Qty is signed:
// positive long, negative short.
type positionInfo struct {
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
}

// newOrderRequest is the new_order payload.
type newOrderRequest struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"order_type"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"time_in_force"`
	ReduceOnly  bool   `json:"reduce_only"`
}

// newOrderResponse is the new_order acknowledgement. Orders are processed
// asynchronously; the ack carries only the client order id.
type newOrderResponse struct {
	ClOrdID string `json:"cl_ord_id"`
	Message string `json:"message"`
}

// cancelOrderRequest is the cancel_order payload.
type cancelOrderRequest struct {
	ClOrdID string `json:"cl_ord_id"`
}

// decodeList handles both response shapes the API uses: a bare JSON array
// or an array wrapped in {"result": [...]}.
func decodeList[T any](body []byte) ([]T, error) {
	var list []T
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Result []T `json:"result"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Result, nil
}
