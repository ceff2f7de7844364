package service

import (
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/shopspring/decimal"
)

// RefundPolicy is a tiered cancellation policy keyed on whole days between the
// cancellation date and check-in.
type RefundPolicy struct {
	FullRefundDays  int
	HalfRefundDays  int
	HalfRefundRatio decimal.Decimal
}

// DefaultRefundPolicy refunds everything from 7 days out, half from 3 days out
// and nothing closer than that.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FullRefundDays:  7,
		HalfRefundDays:  3,
		HalfRefundRatio: decimal.NewFromFloat(0.5),
	}
}

func NewRefundPolicy(fullDays, halfDays int, halfRatio float64) RefundPolicy {
	p := DefaultRefundPolicy()
	if fullDays > 0 {
		p.FullRefundDays = fullDays
	}
	if halfDays > 0 && halfDays <= p.FullRefundDays {
		p.HalfRefundDays = halfDays
	}
	if halfRatio > 0 && halfRatio <= 1 {
		p.HalfRefundRatio = decimal.NewFromFloat(halfRatio)
	}
	return p
}

// Calculate returns the refund for cancelling on cancelledOn a stay that starts
// on checkIn. The result is truncated to cents.
func (p RefundPolicy) Calculate(checkIn, cancelledOn entity.Date, total decimal.Decimal) decimal.Decimal {
	daysBefore := cancelledOn.DaysUntil(checkIn)

	switch {
	case daysBefore >= p.FullRefundDays:
		return total
	case daysBefore >= p.HalfRefundDays:
		return total.Mul(p.HalfRefundRatio).Truncate(2)
	default:
		return decimal.Zero
	}
}

// CalculateRefund applies the default policy.
func CalculateRefund(checkIn, cancelledOn entity.Date, total decimal.Decimal) decimal.Decimal {
	return DefaultRefundPolicy().Calculate(checkIn, cancelledOn, total)
}
