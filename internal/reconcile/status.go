package reconcile

import (
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
)

// MapStatus translates a gateway transaction status into the payment and order statuses
// stored by the order service. Unknown statuses leave both pending.
func MapStatus(transactionStatus string) (domain.PaymentStatus, domain.OrderStatus) {
	switch transactionStatus {
	case payment.StatusApproved:
		return domain.PaymentStatusApproved, domain.OrderStatusConfirmed
	case payment.StatusDeclined:
		return domain.PaymentStatusDeclined, domain.OrderStatusCancelled
	case payment.StatusVoided:
		return domain.PaymentStatusVoided, domain.OrderStatusCancelled
	case payment.StatusError:
		return domain.PaymentStatusError, domain.OrderStatusPending
	default:
		return domain.PaymentStatusPending, domain.OrderStatusPending
	}
}
