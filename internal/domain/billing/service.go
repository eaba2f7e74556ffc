package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/pkg/money"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "billing").Logger()}
}

type CreateInvoiceInput struct {
	AppointmentID *uuid.UUID   `json:"appointment_id"`
	ClientGroupID uuid.UUID    `json:"client_group_id" validate:"required"`
	Amount        money.Amount `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	IssuedDate    time.Time    `json:"issued_date"`
	DueDate       *time.Time   `json:"due_date"`
}

func (s *Service) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*Invoice, error) {
	if in.ClientGroupID == uuid.Nil {
		return nil, apperr.Validation("client_group_id", "client_group_id is required")
	}
	if in.Amount.IsNegative() {
		return nil, apperr.Validation("amount", "invoice amount must not be negative")
	}
	if in.Status == "" {
		in.Status = InvoiceUnpaid
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("status", "unknown invoice status")
	}
	if in.IssuedDate.IsZero() {
		in.IssuedDate = time.Now().UTC()
	}

	inv := &Invoice{
		AppointmentID: in.AppointmentID,
		ClientGroupID: in.ClientGroupID,
		Amount:        in.Amount,
		Status:        in.Status,
		IssuedDate:    in.IssuedDate,
		DueDate:       in.DueDate,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("client_group_id", inv.ClientGroupID.String()).
		Int64("amount", inv.Amount.Cents()).
		Msg("invoice created")
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetByID(ctx, id)
}

type RecordPaymentInput struct {
	Amount        money.Amount  `json:"amount"`
	CreditApplied money.Amount  `json:"credit_applied"`
	Status        PaymentStatus `json:"status"`
	PaymentDate   time.Time     `json:"payment_date"`
}

// RecordPayment attaches a payment to an invoice and rolls the invoice
// status forward when the completed total covers the invoiced amount.
func (s *Service) RecordPayment(ctx context.Context, invoiceID uuid.UUID, in RecordPaymentInput) (*Payment, error) {
	if in.Amount.IsNegative() || in.CreditApplied.IsNegative() {
		return nil, apperr.Validation("amount", "payment amounts must not be negative")
	}
	if in.Amount.IsZero() && in.CreditApplied.IsZero() {
		return nil, apperr.Validation("amount", "payment must carry an amount or applied credit")
	}
	if in.Status == "" {
		in.Status = PaymentCompleted
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("status", "unknown payment status")
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = time.Now().UTC()
	}

	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == InvoiceVoid {
		return nil, apperr.Conflict("cannot record a payment against a voided invoice")
	}

	p := &Payment{
		InvoiceID:     inv.ID,
		Amount:        in.Amount,
		CreditApplied: in.CreditApplied,
		Status:        in.Status,
		PaymentDate:   in.PaymentDate,
	}
	if err := s.repo.AddPayment(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}

	inv.Payments = append(inv.Payments, p)
	settled := Settle(inv)
	next := inv.Status
	switch {
	case settled.Paid.Cmp(settled.Invoiced) >= 0 && !settled.Invoiced.IsZero():
		next = InvoicePaid
	case !settled.Paid.IsZero():
		next = InvoicePartial
	}
	if next != inv.Status {
		if err := s.repo.UpdateStatus(ctx, inv.ID, next); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	s.log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("payment_id", p.ID.String()).
		Int64("amount", p.Amount.Cents()).
		Int64("credit_applied", p.CreditApplied.Cents()).
		Str("invoice_status", string(next)).
		Msg("payment recorded")
	return p, nil
}

func (s *Service) VoidInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == InvoicePaid {
		return apperr.Conflict("paid invoices cannot be voided")
	}
	return s.repo.UpdateStatus(ctx, id, InvoiceVoid)
}

// TerminalInvoiceExists satisfies the scheduling fee-edit gate.
func (s *Service) TerminalInvoiceExists(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	return s.repo.HasTerminalInvoice(ctx, appointmentID)
}
