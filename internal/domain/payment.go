package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// SubscriptionPeriod is a recorded payment and the café days it covers (inclusive).
type SubscriptionPeriod struct {
	ID       PaymentID
	MemberID MemberID

	Plan        Plan
	AmountCents int64
	Method      PaymentMethod

	PeriodStart time.Time
	PeriodEnd   time.Time

	RecordedBy MemberID
	CreatedAt  time.Time
}

// NextPeriod computes the period a new payment covers: it starts the day after the
// current paid-through day, or today if the subscription has lapsed.
func NextPeriod(today time.Time, paidThrough *time.Time, plan Plan) (start, end time.Time) {
	start = today
	if paidThrough != nil {
		next := AddDays(*paidThrough, 1)
		if next.After(start) {
			start = next
		}
	}
	end = AddDays(start.AddDate(0, plan.Months(), 0), -1)
	return start, end
}
