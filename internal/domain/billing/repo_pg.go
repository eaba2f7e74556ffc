package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/internal/platform/db"
	"github.com/carebooks/carebooks/pkg/money"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `i.id, i.appointment_id, i.client_group_id, i.amount, i.status,
	i.issued_date, i.due_date, i.created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var (
		inv    Invoice
		amount int64
	)
	err := row.Scan(&inv.ID, &inv.AppointmentID, &inv.ClientGroupID, &amount, &inv.Status,
		&inv.IssuedDate, &inv.DueDate, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice")
	}
	if err != nil {
		return nil, err
	}
	inv.Amount = money.FromCents(amount)
	return &inv, nil
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, appointment_id, client_group_id, amount, status, issued_date, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.AppointmentID, inv.ClientGroupID, inv.Amount.Cents(), inv.Status, inv.IssuedDate, inv.DueDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoice i WHERE i.id = $1`, id))
	if err != nil {
		return nil, err
	}
	payments, err := r.paymentsFor(ctx, []uuid.UUID{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.Payments = payments[inv.ID]
	return inv, nil
}

func (r *repoPG) listInvoices(ctx context.Context, sql string, args ...interface{}) ([]*Invoice, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	payments, err := r.paymentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		inv.Payments = payments[inv.ID]
	}
	return invoices, nil
}

func (r *repoPG) paymentsFor(ctx context.Context, invoiceIDs []uuid.UUID) (map[uuid.UUID][]*Payment, error) {
	result := make(map[uuid.UUID][]*Payment)
	if len(invoiceIDs) == 0 {
		return result, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, amount, credit_applied, status, payment_date, created_at
		FROM payment WHERE invoice_id = ANY($1)
		ORDER BY payment_date ASC, id ASC`, invoiceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p              Payment
			amount, credit int64
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &credit, &p.Status, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Amount = money.FromCents(amount)
		p.CreditApplied = money.FromCents(credit)
		result[p.InvoiceID] = append(result[p.InvoiceID], &p)
	}
	return result, rows.Err()
}

func (r *repoPG) ListByAppointmentIDs(ctx context.Context, apptIDs []uuid.UUID) (map[uuid.UUID]*Invoice, error) {
	result := make(map[uuid.UUID]*Invoice)
	if len(apptIDs) == 0 {
		return result, nil
	}
	invoices, err := r.listInvoices(ctx, `
		SELECT `+invoiceCols+` FROM invoice i
		WHERE i.appointment_id = ANY($1)
		ORDER BY i.issued_date ASC, i.created_at ASC`, apptIDs)
	if err != nil {
		return nil, err
	}
	// Later invoices shadow earlier ones; a void invoice never displaces a
	// live one and only stands when nothing else exists for the appointment.
	for _, inv := range invoices {
		if inv.AppointmentID == nil {
			continue
		}
		if prev, ok := result[*inv.AppointmentID]; ok &&
			inv.Status == InvoiceVoid && prev.Status != InvoiceVoid {
			continue
		}
		result[*inv.AppointmentID] = inv
	}
	return result, nil
}

func (r *repoPG) ListWithActivityInRange(ctx context.Context, from, to time.Time) ([]*Invoice, error) {
	return r.listInvoices(ctx, `
		SELECT `+invoiceCols+` FROM invoice i
		WHERE (i.issued_date >= $1 AND i.issued_date <= $2)
		   OR EXISTS (
			SELECT 1 FROM payment p
			WHERE p.invoice_id = i.id
			  AND p.payment_date >= $1 AND p.payment_date <= $2)
		ORDER BY i.issued_date ASC, i.created_at ASC`, from, to)
}

func (r *repoPG) AddPayment(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, invoice_id, amount, credit_applied, status, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.InvoiceID, p.Amount.Cents(), p.CreditApplied.Cents(), p.Status, p.PaymentDate)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE invoice SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("invoice")
	}
	return nil
}

func (r *repoPG) HasTerminalInvoice(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoice
			WHERE appointment_id = $1 AND status IN ('PAID', 'VOID'))`,
		appointmentID).Scan(&exists)
	return exists, err
}
