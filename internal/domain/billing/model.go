package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebooks/carebooks/pkg/money"
)

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "DRAFT"
	InvoiceUnpaid  InvoiceStatus = "UNPAID"
	InvoicePartial InvoiceStatus = "PARTIAL"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceVoid    InvoiceStatus = "VOID"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceUnpaid, InvoicePartial, InvoicePaid, InvoiceVoid:
		return true
	}
	return false
}

// Terminal invoices freeze the billing fields of their appointment.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoicePaid || s == InvoiceVoid
}

// CountsTowardBalance excludes drafts and voided invoices from what the
// client group owes.
func (s InvoiceStatus) CountsTowardBalance() bool {
	return s != InvoiceDraft && s != InvoiceVoid
}

// Invoice bills a client group, usually for a single appointment.
// AppointmentID is nil for manually raised invoices.
type Invoice struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	ClientGroupID uuid.UUID     `db:"client_group_id" json:"client_group_id"`
	Amount        money.Amount  `db:"amount" json:"amount"`
	Status        InvoiceStatus `db:"status" json:"status"`
	IssuedDate    time.Time     `db:"issued_date" json:"issued_date"`
	DueDate       *time.Time    `db:"due_date" json:"due_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`

	Payments []*Payment `db:"-" json:"payments,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment against an invoice. CreditApplied is account credit consumed
// alongside the tendered amount; both count toward the paid total.
type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	InvoiceID     uuid.UUID     `db:"invoice_id" json:"invoice_id"`
	Amount        money.Amount  `db:"amount" json:"amount"`
	CreditApplied money.Amount  `db:"credit_applied" json:"credit_applied"`
	Status        PaymentStatus `db:"status" json:"status"`
	PaymentDate   time.Time     `db:"payment_date" json:"payment_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Counts reports whether the payment's money contributes to paid totals.
// Only completed payments count; pending, failed, and refunded do not.
func (p *Payment) Counts() bool { return p.Status == PaymentCompleted }

// Settlement is the invoiced/paid/unpaid view of one invoice. Unpaid is
// clamped at zero for display; Outstanding keeps the raw (possibly negative)
// figure for overpayment detection.
type Settlement struct {
	Invoiced    money.Amount `json:"invoiced"`
	Paid        money.Amount `json:"paid"`
	Unpaid      money.Amount `json:"unpaid"`
	Outstanding money.Amount `json:"-"`
}

// Settle aggregates an invoice's completed payments. A nil invoice settles
// to all zeros.
func Settle(inv *Invoice) Settlement {
	if inv == nil {
		return Settlement{}
	}
	var paid money.Amount
	for _, p := range inv.Payments {
		if p.Counts() {
			paid = paid.Add(p.Amount).Add(p.CreditApplied)
		}
	}
	raw := inv.Amount.Sub(paid)
	return Settlement{
		Invoiced:    inv.Amount,
		Paid:        paid,
		Unpaid:      money.Max(raw, 0),
		Outstanding: raw,
	}
}
