package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebooks/carebooks/pkg/money"
)

// NoteStatus of an appointment's progress note as surfaced on reports.
type NoteStatus string

const (
	NoteCompleted NoteStatus = "COMPLETED"
	NoteMissing   NoteStatus = "NO_NOTE"
)

// Filter narrows appointment listings. All predicates are applied in SQL
// before pagination so that counts and pages agree.
type Filter struct {
	From          time.Time
	To            time.Time
	ClientGroupID *uuid.UUID
	ClinicianID   *uuid.UUID
	Status        *AppointmentStatus
	NoteStatus    *NoteStatus
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate row-locks the appointment; call inside a transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]*Appointment, error)
	Count(ctx context.Context, f Filter) (int, error)
	// NoteStatuses reports, per appointment, whether any progress note
	// exists. Drafts count: a note in progress is still documentation.
	NoteStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	// UpdateBilling writes fee, write-off, and adjustable in one statement.
	UpdateBilling(ctx context.Context, id uuid.UUID, fee, writeOff, adjustable money.Amount) error
	CreateProgressNote(ctx context.Context, n *ProgressNote) error
}

// ProgressNote documents a session. Completed marks a finalized note; even a
// draft flips the report's note status to COMPLETED.
type ProgressNote struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Body          string    `db:"body" json:"body"`
	Completed     bool      `db:"completed" json:"completed"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
