package trader

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gridx/config"
	"gridx/logger"
	"gridx/tradelog"
	"gridx/trader/types"
)

// ExecutionReport summarizes one cycle's exchange actions. A non-zero
// failure count is not fatal: the next cycle's reconciliation retries
// whatever did not converge.
type ExecutionReport struct {
	Canceled     int
	Placed       int
	CancelFailed int
	PlaceFailed  int
}

// Failed reports whether any cancel or placement failed this cycle.
func (r ExecutionReport) Failed() bool {
	return r.CancelFailed > 0 || r.PlaceFailed > 0
}

// AutoTrader drives the grid reconciliation loop for a single account on a
// single symbol. All state it needs is re-derived from the exchange every
// cycle — it never trusts its own memory of past orders, which makes the
// loop self-healing after restarts, missed cycles, or partial failures.
type AutoTrader struct {
	cfg      *config.Config
	account  *config.Account
	exchange types.Exchange
	events   *tradelog.Writer
	tickSize float64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewAutoTrader creates the cycle driver. tickSize is the exchange tick for
// the configured symbol, discovered once at startup. events may be nil.
func NewAutoTrader(cfg *config.Config, account *config.Account, exchange types.Exchange, tickSize float64, events *tradelog.Writer) *AutoTrader {
	return &AutoTrader{
		cfg:      cfg,
		account:  account,
		exchange: exchange,
		events:   events,
		tickSize: tickSize,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the reconciliation loop in a single goroutine. Cycles are
// strictly sequential and never overlap; the first runs immediately.
func (at *AutoTrader) Start() {
	at.wg.Add(1)
	go at.run()
	logger.Infof("🚀 [Grid] Started: account=%s symbol=%s levels=%d interval=%s",
		at.account.Index, at.cfg.Symbol, at.cfg.GridCount, at.cfg.SleepInterval)
}

// Stop signals the loop to exit and waits for the current cycle to finish.
// In-flight exchange calls complete or fail on their own; there is no
// graceful drain of resting orders.
func (at *AutoTrader) Stop() {
	close(at.stopCh)
	at.wg.Wait()
	logger.Infof("📛 [Grid] Stopped: account=%s", at.account.Index)
}

func (at *AutoTrader) run() {
	defer at.wg.Done()

	// First cycle immediately, then on the ticker
	if err := at.RunCycle(); err != nil {
		logger.Warnf("⚠️  [Grid] Cycle failed: %v", err)
	}

	ticker := time.NewTicker(at.cfg.SleepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-at.stopCh:
			return
		case <-ticker.C:
			if err := at.RunCycle(); err != nil {
				logger.Warnf("⚠️  [Grid] Cycle failed: %v", err)
			}
		}
	}
}

// RunCycle executes one full pass: fetch price, fetch open orders, build
// the target ladder, reconcile, execute cancels then placements, and check
// the position. A transport failure on either fetch aborts the cycle (and
// only the cycle); execution-stage failures are isolated per call.
func (at *AutoTrader) RunCycle() error {
	price, err := at.exchange.GetMarketPrice(at.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("failed to get market price: %w", err)
	}

	live, err := at.exchange.GetOpenOrders(at.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("failed to get open orders: %w", err)
	}

	target := BuildGrid(price, at.cfg, at.tickSize)
	cancels, places := Reconcile(target, live, at.tickSize)

	report := at.execute(cancels, places)
	if report.Failed() {
		logger.Warnf("⚠️  [Grid] Partial execution: %d cancel / %d place failures, retrying next cycle",
			report.CancelFailed, report.PlaceFailed)
	}

	logger.Infof("📊 [Grid] price=%.2f target=%d live=%d canceled=%d placed=%d",
		price, len(target), len(live), report.Canceled, report.Placed)

	// Runs after reconciliation so fills accumulated during cancel/place
	// are captured
	at.checkAndFlatten()

	return nil
}

// execute applies the cancel list, then the place list. Cancellations go
// first to free margin before new exposure is added. Each call is isolated:
// one order's failure is logged and skipped, never fatal to the cycle.
func (at *AutoTrader) execute(cancels []types.OpenOrder, places []GridLevel) ExecutionReport {
	var report ExecutionReport

	for _, order := range cancels {
		if err := at.exchange.CancelOrder(at.cfg.Symbol, order.OrderID); err != nil {
			report.CancelFailed++
			logger.Warnf("⚠️  [Grid] Failed to cancel order (ID: %s, %s@%.2f): %v",
				order.OrderID, order.Side, order.Price, err)
			continue
		}
		report.Canceled++
		at.events.OrderCanceled(order.OrderID, order.Side, order.Price, order.Quantity)
		logger.Infof("✓ [Grid] Canceled %s %.4f @ %.2f (ID: %s)",
			order.Side, order.Quantity, order.Price, order.OrderID)
	}

	for _, lvl := range places {
		result, err := at.exchange.PlaceLimitOrder(&types.LimitOrderRequest{
			Symbol:   at.cfg.Symbol,
			Side:     lvl.Side,
			Price:    lvl.Price,
			Quantity: lvl.Quantity,
		})
		if err != nil {
			report.PlaceFailed++
			logger.Warnf("⚠️  [Grid] Failed to place %s @ %.2f: %v", lvl.Side, lvl.Price, err)
			continue
		}
		report.Placed++
		at.events.OrderPlaced(result.OrderID, lvl.Side, lvl.Price, lvl.Quantity)
		logger.Infof("✓ [Grid] Placed %s %.4f @ %.2f (ID: %s)",
			lvl.Side, lvl.Quantity, lvl.Price, result.OrderID)
	}

	return report
}

// checkAndFlatten queries the net position and, if it is non-zero, issues
// one market order of opposite sign and equal magnitude. A grid of resting
// limit orders should carry no position between cycles; anything else is an
// accidental fill. Failure here is logged and retried next cycle.
func (at *AutoTrader) checkAndFlatten() {
	position, err := at.exchange.GetPosition(at.cfg.Symbol)
	if err != nil {
		logger.Warnf("⚠️  [Grid] Failed to query position: %v", err)
		return
	}

	if position == 0 {
		return
	}

	side := SideSell
	if position < 0 {
		side = SideBuy
	}
	quantity := math.Abs(position)

	logger.Warnf("🛑 [Grid] Exposed position %.6f detected, flattening with market %s %.6f",
		position, side, quantity)

	result, err := at.exchange.PlaceMarketOrder(at.cfg.Symbol, side, quantity)
	if err != nil {
		logger.Errorf("❌ [Grid] Failed to flatten position: %v (will retry next cycle)", err)
		return
	}

	at.events.PositionFlattened(result.OrderID, side, quantity)
	logger.Infof("✓ [Grid] Flatten order submitted (ID: %s)", result.OrderID)
}
