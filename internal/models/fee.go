package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeePending = "pending"
	FeePaid    = "paid"
	FeeOverdue = "overdue"
)

type Fee struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SchoolID  uuid.UUID  `json:"school_id" db:"school_id"`
	StudentID uuid.UUID  `json:"student_id" db:"student_id"`
	Title     string     `json:"title" db:"title"`
	Amount    float64    `json:"amount" db:"amount"`
	DueDate   time.Time  `json:"due_date" db:"due_date"`
	Status    string     `json:"status" db:"status"`
	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// FeeSummary aggregates a school's fees; it feeds the fee analytics prompt.
type FeeSummary struct {
	TotalCount    int     `json:"total_count"`
	PaidCount     int     `json:"paid_count"`
	PendingCount  int     `json:"pending_count"`
	OverdueCount  int     `json:"overdue_count"`
	TotalAmount   float64 `json:"total_amount"`
	PaidAmount    float64 `json:"paid_amount"`
	OverdueAmount float64 `json:"overdue_amount"`
}

// CollectionRate is the paid share of the billed amount, 0 when nothing is billed.
func (s FeeSummary) CollectionRate() float64 {
	if s.TotalAmount <= 0 {
		return 0
	}
	return s.PaidAmount / s.TotalAmount
}

// OverdueReminder is an overdue fee with the contact to remind.
type OverdueReminder struct {
	FeeID       uuid.UUID `db:"fee_id"`
	SchoolID    uuid.UUID `db:"school_id"`
	SchoolName  string    `db:"school_name"`
	StudentName string    `db:"student_name"`
	Title       string    `db:"title"`
	Amount      float64   `db:"amount"`
	DueDate     time.Time `db:"due_date"`
	ParentName  string    `db:"parent_name"`
	ParentEmail string    `db:"parent_email"`
}
