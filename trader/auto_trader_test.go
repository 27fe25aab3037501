package trader

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"gridx/config"
	"gridx/trader/types"
)

// MockExchange in-memory exchange double: holds a price, an order book and
// a position, and records every call in order.
type MockExchange struct {
	price    float64
	priceErr error

	orders    []types.OpenOrder
	ordersErr error

	position    float64
	positionErr error

	cancelErrs map[string]error // orderID -> error to return
	placeErr   error
	marketErr  error

	calls  []string
	nextID int
}

func NewMockExchange() *MockExchange {
	return &MockExchange{cancelErrs: make(map[string]error)}
}

func (m *MockExchange) record(format string, args ...interface{}) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *MockExchange) GetMarketPrice(symbol string) (float64, error) {
	m.record("price")
	return m.price, m.priceErr
}

func (m *MockExchange) GetOpenOrders(symbol string) ([]types.OpenOrder, error) {
	m.record("open_orders")
	return m.orders, m.ordersErr
}

func (m *MockExchange) PlaceLimitOrder(req *types.LimitOrderRequest) (*types.OrderResult, error) {
	m.record("place %s@%v", req.Side, req.Price)
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	m.nextID++
	id := fmt.Sprintf("ord-%d", m.nextID)
	m.orders = append(m.orders, types.OpenOrder{
		OrderID: id, Symbol: req.Symbol, Side: req.Side,
		Price: req.Price, Quantity: req.Quantity, Status: "open",
	})
	return &types.OrderResult{OrderID: id, Side: req.Side, Price: req.Price, Quantity: req.Quantity, Status: "pending"}, nil
}

func (m *MockExchange) PlaceMarketOrder(symbol, side string, quantity float64) (*types.OrderResult, error) {
	m.record("market %s %v", side, quantity)
	if m.marketErr != nil {
		return nil, m.marketErr
	}
	// Market order flattens instantly in the mock
	if side == SideSell {
		m.position -= quantity
	} else {
		m.position += quantity
	}
	m.nextID++
	return &types.OrderResult{OrderID: fmt.Sprintf("mkt-%d", m.nextID), Side: side, Quantity: quantity, Status: "pending"}, nil
}

func (m *MockExchange) CancelOrder(symbol, orderID string) error {
	m.record("cancel %s", orderID)
	if err := m.cancelErrs[orderID]; err != nil {
		return err
	}
	kept := m.orders[:0]
	for _, o := range m.orders {
		if o.OrderID != orderID {
			kept = append(kept, o)
		}
	}
	m.orders = kept
	return nil
}

func (m *MockExchange) GetPosition(symbol string) (float64, error) {
	m.record("position")
	return m.position, m.positionErr
}

// AutoTraderTestSuite exercises the full cycle against the mock exchange.
type AutoTraderTestSuite struct {
	suite.Suite

	exchange *MockExchange
	trader   *AutoTrader
}

func (s *AutoTraderTestSuite) SetupTest() {
	s.exchange = NewMockExchange()
	s.exchange.price = 100000

	cfg := gridConfig()
	account := &config.Account{Index: "01", PrivateKey: "test"}
	s.trader = NewAutoTrader(cfg, account, s.exchange, tick, nil)
}

func (s *AutoTraderTestSuite) TestColdStartPlacesFullGrid() {
	err := s.trader.RunCycle()
	s.Require().NoError(err)

	// 2 buys + 2 sells
	s.Len(s.exchange.orders, 4)
}

func (s *AutoTraderTestSuite) TestSteadyStateIssuesNoOrders() {
	s.Require().NoError(s.trader.RunCycle())
	callsAfterFirst := len(s.exchange.calls)

	s.Require().NoError(s.trader.RunCycle())

	for _, call := range s.exchange.calls[callsAfterFirst:] {
		if call != "price" && call != "open_orders" && call != "position" {
			s.Failf("unexpected exchange call", "second cycle issued %q", call)
		}
	}
}

// Cancels are issued before placements, and the position check runs last.
func (s *AutoTraderTestSuite) TestCycleOrdering() {
	s.exchange.orders = []types.OpenOrder{
		{OrderID: "stray", Side: SideBuy, Price: 99900, Quantity: 0.001, Status: "open"},
	}

	s.Require().NoError(s.trader.RunCycle())

	var cancelIdx, firstPlaceIdx, positionIdx int = -1, -1, -1
	for i, call := range s.exchange.calls {
		switch {
		case call == "cancel stray":
			cancelIdx = i
		case firstPlaceIdx == -1 && len(call) > 5 && call[:5] == "place":
			firstPlaceIdx = i
		case call == "position":
			positionIdx = i
		}
	}

	s.Require().GreaterOrEqual(cancelIdx, 0, "stray order should be canceled")
	s.Require().GreaterOrEqual(firstPlaceIdx, 0)
	s.Less(cancelIdx, firstPlaceIdx, "cancellations must precede placements")
	s.Greater(positionIdx, firstPlaceIdx, "position check must run after execution")
}

// One order's failure is skipped, the rest of the cycle proceeds, and the
// next cycle converges.
func (s *AutoTraderTestSuite) TestPartialExecutionIsIsolated() {
	s.exchange.orders = []types.OpenOrder{
		{OrderID: "stuck", Side: SideBuy, Price: 99900, Quantity: 0.001, Status: "open"},
	}
	s.exchange.cancelErrs["stuck"] = fmt.Errorf("rate limited")

	s.Require().NoError(s.trader.RunCycle())

	// Placements still went through despite the failed cancel
	s.Len(s.exchange.orders, 5) // 4 grid orders + the stuck one

	// Next cycle retries the cancel once the transient error clears
	delete(s.exchange.cancelErrs, "stuck")
	s.Require().NoError(s.trader.RunCycle())
	s.Len(s.exchange.orders, 4)
}

// A non-zero position after reconciliation is flattened with one market
// order of opposite sign and equal magnitude.
func (s *AutoTraderTestSuite) TestFlattenLongPosition() {
	s.exchange.position = 0.0001

	s.Require().NoError(s.trader.RunCycle())

	s.Contains(s.exchange.calls, "market sell 0.0001")
	s.Equal(0.0, s.exchange.position)

	// Next cycle is flat: no further market orders
	before := len(s.exchange.calls)
	s.Require().NoError(s.trader.RunCycle())
	for _, call := range s.exchange.calls[before:] {
		s.NotContains(call, "market")
	}
}

func (s *AutoTraderTestSuite) TestFlattenShortPosition() {
	s.exchange.position = -0.002

	s.Require().NoError(s.trader.RunCycle())

	s.Contains(s.exchange.calls, "market buy 0.002")
	s.Equal(0.0, s.exchange.position)
}

// A rejected flatten order is logged and left for the next cycle.
func (s *AutoTraderTestSuite) TestFlattenFailureIsRetriedNextCycle() {
	s.exchange.position = 0.0001
	s.exchange.marketErr = fmt.Errorf("order rejected")

	s.Require().NoError(s.trader.RunCycle())
	s.Equal(0.0001, s.exchange.position, "position must persist after failed flatten")

	s.exchange.marketErr = nil
	s.Require().NoError(s.trader.RunCycle())
	s.Equal(0.0, s.exchange.position)
}

// A transport failure on the price or order snapshot aborts the cycle
// without touching the exchange.
func (s *AutoTraderTestSuite) TestFetchFailureAbortsCycle() {
	s.exchange.priceErr = fmt.Errorf("connection refused")

	err := s.trader.RunCycle()
	s.Require().Error(err)

	for _, call := range s.exchange.calls {
		s.NotContains(call, "place")
		s.NotContains(call, "cancel")
	}
}

func (s *AutoTraderTestSuite) TestOpenOrdersFailureAbortsCycle() {
	s.exchange.ordersErr = fmt.Errorf("HTTP 502")

	err := s.trader.RunCycle()
	s.Require().Error(err)
	s.NotContains(s.exchange.calls, "position")
}

func TestAutoTraderTestSuite(t *testing.T) {
	suite.Run(t, new(AutoTraderTestSuite))
}

func TestExecutionReportFailed(t *testing.T) {
	if (ExecutionReport{}).Failed() {
		t.Error("empty report should not be failed")
	}
	if !(ExecutionReport{CancelFailed: 1}).Failed() {
		t.Error("cancel failure should mark report failed")
	}
	if !(ExecutionReport{PlaceFailed: 2}).Failed() {
		t.Error("place failure should mark report failed")
	}
}
