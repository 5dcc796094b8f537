package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderIntent describes a single taker order to submit to a venue.
type OrderIntent struct {
	Venue         Venue
	MarketID      string
	Side          Side
	Price         decimal.Decimal // 0 <= price <= 1
	Size          decimal.Decimal // > 0
	MaxSlippage   decimal.Decimal
	CreatedAt     time.Time
	ClientOrderID string // supplemented: echoed back by venues for idempotent retries
}

// Validate enforces the OrderIntent constraints from the data model.
func (o OrderIntent) Validate() error {
	zero, one := decimal.Zero, decimal.NewFromInt(1)
	if o.Price.LessThan(zero) || o.Price.GreaterThan(one) {
		return fmt.Errorf("price %s outside [0,1]", o.Price)
	}
	if o.Size.LessThanOrEqual(zero) {
		return fmt.Errorf("size %s not positive", o.Size)
	}
	return nil
}

// ExecutionIntent is the unit of work consumed by exactly one execution
// attempt: a pair of legs derived from an EdgeSignal. Created by the
// signal engine, owned by the state machine for the duration of the
// attempt.
type ExecutionIntent struct {
	IntentID         string
	Edge             EdgeSignal
	PrimaryOrder     OrderIntent
	HedgeOrder       OrderIntent
	MaxNotional      decimal.Decimal
	HedgeProbability float64
	CreatedAt        time.Time
}

// OrderStatus is the venue-reported lifecycle state of a placed order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderRecord is the persistence-facing record of a placed order.
type OrderRecord struct {
	ID         string
	IntentID   string
	Venue      Venue
	MarketID   string
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	SentAt     time.Time
	AckedAt    time.Time
	Status     OrderStatus
	VenueOrderID string
}

// Fill is a realized execution against an OrderRecord.
type Fill struct {
	OrderID       string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	FilledAt      time.Time
	FeeCents      float64
	SlippageCents float64
}

// PricePoint is one observation fed into the lead-lag detector.
type PricePoint struct {
	PairKey   string
	Venue     Venue
	Timestamp time.Time
	MidPrice  decimal.Decimal
}
