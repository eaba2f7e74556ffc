package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// ListByAppointmentIDs returns invoices keyed by appointment id, with
	// payments loaded. When an appointment carries several invoices the
	// most recently issued non-void one wins.
	ListByAppointmentIDs(ctx context.Context, apptIDs []uuid.UUID) (map[uuid.UUID]*Invoice, error)
	// ListWithActivityInRange returns invoices either issued inside the
	// range or carrying payments dated inside it, payments loaded.
	ListWithActivityInRange(ctx context.Context, from, to time.Time) ([]*Invoice, error)
	AddPayment(ctx context.Context, p *Payment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error
	// HasTerminalInvoice reports whether any PAID or VOID invoice targets
	// the appointment.
	HasTerminalInvoice(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}
