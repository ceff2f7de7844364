package entity

// AssertMutable is evaluated before any booking mutation. A booking that is no
// longer ACTIVE may only have its status field named in an edit.
func AssertMutable(b *Booking, fields []BookingField) error {
	if !b.Status.IsTerminal() {
		return nil
	}
	for _, f := range fields {
		if f != FieldStatus {
			return NewForbiddenError("booking %s is %s: field %s can no longer be changed", b.Code, b.Status, f)
		}
	}
	return nil
}

// CheckStatusEdit validates a status change requested through an edit.
//
// Writing the current status back is always accepted. ACTIVE may be cancelled.
// ACTIVE may be marked COMPLETED only once its check-out date has passed, which
// is the same predicate the expiry sweep uses. Nothing leaves a terminal state.
func CheckStatusEdit(b *Booking, to BookingStatus, today Date) error {
	if b.Status == to {
		return nil
	}
	if b.Status.IsTerminal() {
		return NewForbiddenError("booking %s is %s and cannot become %s", b.Code, b.Status, to)
	}
	switch to {
	case BookingStatusCancelled:
		return nil
	case BookingStatusCompleted:
		if b.CheckOut.Before(today) {
			return nil
		}
		return NewForbiddenError("booking %s cannot be completed before its check-out date", b.Code)
	}
	return ErrInvalidTransition
}

// IsExpired reports whether the sweep should complete b on day today.
func IsExpired(b *Booking, today Date) bool {
	return b.Status == BookingStatusActive && b.CheckOut.Before(today)
}
