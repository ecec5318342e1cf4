package domain

import "strings"

type TransactionStatus string

const (
	StatusInitiated         TransactionStatus = "INITIATED"
	StatusNegotiating       TransactionStatus = "NEGOTIATING"
	StatusAgreed            TransactionStatus = "AGREED"
	StatusPaymentPending    TransactionStatus = "PAYMENT_PENDING"
	StatusPaymentCompleted  TransactionStatus = "PAYMENT_COMPLETED"
	StatusDeliveryPending   TransactionStatus = "DELIVERY_PENDING"
	StatusDeliveryCompleted TransactionStatus = "DELIVERY_COMPLETED"
	StatusCompleted         TransactionStatus = "COMPLETED"
	StatusCancelled         TransactionStatus = "CANCELLED"
	StatusDisputed          TransactionStatus = "DISPUTED"
)

// Statuses lists every status in lifecycle order, side exits last.
var Statuses = []TransactionStatus{
	StatusInitiated, StatusNegotiating, StatusAgreed, StatusPaymentPending, StatusPaymentCompleted,
	StatusDeliveryPending, StatusDeliveryCompleted, StatusCompleted, StatusCancelled, StatusDisputed,
}

// forward holds the happy-path edges. CANCELLED and DISPUTED are handled in CanTransition.
var forward = map[TransactionStatus][]TransactionStatus{
	StatusInitiated:         {StatusNegotiating, StatusAgreed},
	StatusNegotiating:       {StatusAgreed},
	StatusAgreed:            {StatusPaymentPending},
	StatusPaymentPending:    {StatusPaymentCompleted},
	StatusPaymentCompleted:  {StatusDeliveryPending},
	StatusDeliveryPending:   {StatusDeliveryCompleted},
	StatusDeliveryCompleted: {StatusCompleted},
}

func (s TransactionStatus) IsValid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports COMPLETED and CANCELLED.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts any letter case.
func ParseStatus(s string) (TransactionStatus, bool) {
	st := TransactionStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// DISPUTED only leaves through cancellation or an administrative override.
func CanTransition(from, to TransactionStatus) bool {
	if from.IsTerminal() || from == to || !to.IsValid() {
		return false
	}
	switch to {
	case StatusCancelled:
		return true
	case StatusDisputed:
		return true
	}
	if from == StatusDisputed {
		return false
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns every status reachable from s in one step.
func NextStatuses(s TransactionStatus) []TransactionStatus {
	var out []TransactionStatus
	for _, to := range Statuses {
		if CanTransition(s, to) {
			out = append(out, to)
		}
	}
	return out
}
