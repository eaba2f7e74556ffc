package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebooks/carebooks/pkg/money"
)

// AppointmentStatus tracks attendance outcome. Cancelled and late-cancelled
// appointments still participate in billing when a fee was charged.
type AppointmentStatus string

const (
	StatusScheduled     AppointmentStatus = "SCHEDULED"
	StatusShow          AppointmentStatus = "SHOW"
	StatusNoShow        AppointmentStatus = "NO_SHOW"
	StatusCancelled     AppointmentStatus = "CANCELLED"
	StatusLateCancelled AppointmentStatus = "LATE_CANCELLED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusShow, StatusNoShow, StatusCancelled, StatusLateCancelled:
		return true
	}
	return false
}

// Appointment is a scheduled service with its billing fields. Fee and
// Adjustable are nullable: nil means "never set", which is distinct from an
// explicit zero for adjustment accounting.
type Appointment struct {
	ID            uuid.UUID         `db:"id" json:"id"`
	ClientGroupID uuid.UUID         `db:"client_group_id" json:"client_group_id"`
	ClinicianID   uuid.UUID         `db:"clinician_id" json:"clinician_id"`
	ServiceCode   string            `db:"service_code" json:"service_code"`
	Status        AppointmentStatus `db:"status" json:"status"`
	Units         int               `db:"units" json:"units"`
	StartDate     time.Time         `db:"start_date" json:"start_date"`
	EndDate       time.Time         `db:"end_date" json:"end_date"`
	Fee           *money.Amount     `db:"appointment_fee" json:"appointment_fee"`
	WriteOff      money.Amount      `db:"write_off" json:"write_off"`
	Adjustable    *money.Amount     `db:"adjustable_amount" json:"adjustable_amount"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Charge is what the client group owes for this appointment:
// fee + adjustable - write_off, with unset fields treated as zero.
func (a *Appointment) Charge() money.Amount {
	return money.ValueOrZero(a.Fee).
		Add(money.ValueOrZero(a.Adjustable)).
		Sub(a.WriteOff)
}

// AdjustedAmount recomputes the adjustable balance after a fee or write-off
// edit. Only the deltas move it:
//
//	adjustable_new = adjustable_old + (fee_new - fee_old) - (writeoff_new - writeoff_old)
func AdjustedAmount(adjustableOld, feeOld, feeNew, writeOffOld, writeOffNew money.Amount) money.Amount {
	return adjustableOld.
		Add(feeNew.Sub(feeOld)).
		Sub(writeOffNew.Sub(writeOffOld))
}
