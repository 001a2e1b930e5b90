package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentScheduled PaymentStatus = "SCHEDULED"
	// PaymentCompleted is terminal. Settlement on a completed payment is a
	// verified no-op.
	PaymentCompleted PaymentStatus = "COMPLETED"
	// PaymentFailed is terminal for the job that produced it but remains
	// eligible for a fresh settlement attempt.
	PaymentFailed PaymentStatus = "FAILED"
)

// Payment moves monotonically forward through its lifecycle; it never leaves
// COMPLETED. ProcessedDate and TransactionID are set only on completion.
type Payment struct {
	ID            string
	FarmID        string
	ProgramID     string
	Amount        decimal.Decimal
	DueDate       time.Time
	Status        PaymentStatus
	ProcessedDate *time.Time
	TransactionID string
	Notes         string
}
