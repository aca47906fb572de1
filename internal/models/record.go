// Package models provides data structures for retrieved account records and
// the profit/loss results derived from them.
package models

import "time"

// PositionSide identifies the direction of an open position.
type PositionSide string

const (
	// SideBuy is a long position.
	SideBuy PositionSide = "buy"
	// SideSell is a short position.
	SideSell PositionSide = "sell"
)

// Valid returns true if the side is one of the two recognized values.
func (s PositionSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderKind identifies the type of a pending order.
type OrderKind string

const (
	OrderBuyLimit      OrderKind = "buy_limit"
	OrderSellLimit     OrderKind = "sell_limit"
	OrderBuyStop       OrderKind = "buy_stop"
	OrderSellStop      OrderKind = "sell_stop"
	OrderBuyStopLimit  OrderKind = "buy_stop_limit"
	OrderSellStopLimit OrderKind = "sell_stop_limit"
)

// Valid returns true if the OrderKind is one of the defined constants.
func (k OrderKind) Valid() bool {
	switch k {
	case OrderBuyLimit, OrderSellLimit, OrderBuyStop, OrderSellStop,
		OrderBuyStopLimit, OrderSellStopLimit:
		return true
	default:
		return false
	}
}

// Side maps the order kind onto the position side it would open when triggered.
func (k OrderKind) Side() PositionSide {
	switch k {
	case OrderBuyLimit, OrderBuyStop, OrderBuyStopLimit:
		return SideBuy
	case OrderSellLimit, OrderSellStop, OrderSellStopLimit:
		return SideSell
	default:
		return ""
	}
}

// PositionRecord is an open, filled trade as retrieved from the terminal.
// StopLoss and TakeProfit are nil when the corresponding level is not set;
// the distinction between "absent" and "zero" matters for aggregation.
type PositionRecord struct {
	Ticket       int64
	Symbol       string
	Side         PositionSide
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	StopLoss     *float64
	TakeProfit   *float64
	Magic        int64
	Comment      string
	OpenedAt     time.Time
}

// PendingOrderRecord is an unfilled order as retrieved from the terminal.
// It becomes a position only if the market reaches TriggerPrice.
type PendingOrderRecord struct {
	Ticket       int64
	Symbol       string
	Kind         OrderKind
	Volume       float64
	TriggerPrice float64
	StopLoss     *float64
	TakeProfit   *float64
	Magic        int64
	Comment      string
	PlacedAt     time.Time
}

// Float64 returns a pointer to v. Convenience for building records with
// optional price levels.
func Float64(v float64) *float64 { return &v }
