package tradelog

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Writer appends structured trade events for one account to a JSON-lines
// log file. The file is append-only and never read back by the controller;
// every cycle re-derives its state from the exchange instead.
type Writer struct {
	log  zerolog.Logger
	file *os.File
}

// New opens (or creates) the per-account trade log file in dir. An empty
// dir means the current working directory.
func New(dir, accountIndex string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	path := fmt.Sprintf("%s/standx_grid_%s.log", dir, accountIndex)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log %s: %w", path, err)
	}

	log := zerolog.New(file).With().
		Timestamp().
		Str("account", accountIndex).
		Logger()

	return &Writer{log: log, file: file}, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if w == nil || w.file == nil {
		return nil
	}
	return w.file.Close()
}

// OrderPlaced records a successful limit order placement.
func (w *Writer) OrderPlaced(orderID, side string, price, quantity float64) {
	if w == nil {
		return
	}
	w.event("order_placed", orderID, side).
		Float64("price", price).
		Float64("quantity", quantity).
		Msg("limit order placed")
}

// OrderCanceled records a successful cancellation.
func (w *Writer) OrderCanceled(orderID, side string, price, quantity float64) {
	if w == nil {
		return
	}
	w.event("order_canceled", orderID, side).
		Float64("price", price).
		Float64("quantity", quantity).
		Msg("order canceled")
}

// OrderFilled records a fill reported by the exchange order stream.
func (w *Writer) OrderFilled(orderID, side string, price, quantity float64) {
	if w == nil {
		return
	}
	w.event("order_filled", orderID, side).
		Float64("price", price).
		Float64("quantity", quantity).
		Msg("order filled")
}

// PositionFlattened records a market order issued to close an accidental
// position.
func (w *Writer) PositionFlattened(orderID, side string, quantity float64) {
	if w == nil {
		return
	}
	w.event("position_flattened", orderID, side).
		Float64("quantity", quantity).
		Msg("position flattened")
}

func (w *Writer) event(kind, orderID, side string) *zerolog.Event {
	return w.log.Info().
		Str("event", kind).
		Str("order_id", orderID).
		Str("side", side).
		Time("at", time.Now().UTC())
}
