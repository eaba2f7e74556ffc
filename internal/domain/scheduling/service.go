package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/internal/platform/db"
	"github.com/carebooks/carebooks/pkg/money"
)

// InvoiceGate answers whether an appointment already carries an invoice in a
// terminal state. Terminal invoices freeze the appointment's billing fields.
type InvoiceGate interface {
	TerminalInvoiceExists(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

type Service struct {
	repo Repository
	tx   db.TxRunner
	gate InvoiceGate
	log  zerolog.Logger
}

func NewService(repo Repository, tx db.TxRunner, gate InvoiceGate, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		tx:   tx,
		gate: gate,
		log:  log.With().Str("component", "scheduling").Logger(),
	}
}

type CreateAppointmentInput struct {
	ClientGroupID uuid.UUID         `json:"client_group_id" validate:"required"`
	ClinicianID   uuid.UUID         `json:"clinician_id" validate:"required"`
	ServiceCode   string            `json:"service_code" validate:"required,max=20"`
	Status        AppointmentStatus `json:"status"`
	Units         int               `json:"units" validate:"min=0"`
	StartDate     time.Time         `json:"start_date" validate:"required"`
	EndDate       time.Time         `json:"end_date" validate:"required"`
	Fee           *money.Amount     `json:"appointment_fee"`
	WriteOff      money.Amount      `json:"write_off"`
}

func (s *Service) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	if in.ClientGroupID == uuid.Nil {
		return nil, apperr.Validation("client_group_id", "client_group_id is required")
	}
	if strings.TrimSpace(in.ServiceCode) == "" {
		return nil, apperr.Validation("service_code", "service_code is required")
	}
	if in.Status == "" {
		in.Status = StatusScheduled
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("status", "unknown appointment status")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, apperr.Validation("end_date", "end_date must not precede start_date")
	}
	if in.Fee != nil && in.Fee.IsNegative() {
		return nil, apperr.Validation("appointment_fee", "fee must not be negative")
	}
	if in.WriteOff.IsNegative() {
		return nil, apperr.Validation("write_off", "write-off must not be negative")
	}
	if in.Units <= 0 {
		in.Units = 1
	}

	a := &Appointment{
		ClientGroupID: in.ClientGroupID,
		ClinicianID:   in.ClinicianID,
		ServiceCode:   strings.TrimSpace(in.ServiceCode),
		Status:        in.Status,
		Units:         in.Units,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Fee:           in.Fee,
		WriteOff:      in.WriteOff,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	appts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return appts, total, nil
}

type FeeAdjustmentInput struct {
	Fee      money.Amount `json:"appointment_fee"`
	WriteOff money.Amount `json:"write_off"`
}

// ApplyFeeAdjustment edits an appointment's fee and write-off and rolls the
// delta into the adjustable balance, all under a row lock so concurrent edits
// serialize. Unchanged values are a no-op: the row is left untouched and the
// stored appointment is returned as-is.
func (s *Service) ApplyFeeAdjustment(ctx context.Context, id uuid.UUID, in FeeAdjustmentInput) (*Appointment, error) {
	if in.Fee.IsNegative() {
		return nil, apperr.Validation("appointment_fee", "fee must not be negative")
	}
	if in.WriteOff.IsNegative() {
		return nil, apperr.Validation("write_off", "write-off must not be negative")
	}

	var result *Appointment
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		terminal, err := s.gate.TerminalInvoiceExists(ctx, a.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if terminal {
			return apperr.Conflict("appointment billing is locked by a paid or voided invoice")
		}

		feeOld := money.ValueOrZero(a.Fee)
		if in.Fee == feeOld && in.WriteOff == a.WriteOff {
			result = a
			return nil
		}

		adjustable := AdjustedAmount(money.ValueOrZero(a.Adjustable),
			feeOld, in.Fee, a.WriteOff, in.WriteOff)
		if err := s.repo.UpdateBilling(ctx, a.ID, in.Fee, in.WriteOff, adjustable); err != nil {
			return err
		}

		s.log.Info().
			Str("appointment_id", a.ID.String()).
			Int64("fee_old", feeOld.Cents()).
			Int64("fee_new", in.Fee.Cents()).
			Int64("write_off_old", a.WriteOff.Cents()).
			Int64("write_off_new", in.WriteOff.Cents()).
			Int64("adjustable", adjustable.Cents()).
			Msg("fee adjustment applied")

		a.Fee = money.Ptr(in.Fee)
		a.WriteOff = in.WriteOff
		a.Adjustable = money.Ptr(adjustable)
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type CreateNoteInput struct {
	Body      string `json:"body" validate:"required"`
	Completed bool   `json:"completed"`
}

func (s *Service) CreateProgressNote(ctx context.Context, appointmentID uuid.UUID, in CreateNoteInput) (*ProgressNote, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperr.Validation("body", "note body is required")
	}
	if _, err := s.repo.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}
	n := &ProgressNote{AppointmentID: appointmentID, Body: in.Body, Completed: in.Completed}
	if err := s.repo.CreateProgressNote(ctx, n); err != nil {
		return nil, apperr.Internal(err)
	}
	return n, nil
}
