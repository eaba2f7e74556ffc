package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const apptCols = `a.id, a.client_group_id, a.clinician_id, a.service_code, a.status,
	a.units, a.start_date, a.end_date, a.appointment_fee, a.write_off,
	a.adjustable_amount, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a              Appointment
		fee, adjustable *int64
		writeOff       int64
	)
	err := row.Scan(&a.ID, &a.ClientGroupID, &a.ClinicianID, &a.ServiceCode, &a.Status,
		&a.Units, &a.StartDate, &a.EndDate, &fee, &writeOff,
		&adjustable, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}
	if fee != nil {
		a.Fee = money.Ptr(money.FromCents(*fee))
	}
	a.WriteOff = money.FromCents(writeOff)
	if adjustable != nil {
		a.Adjustable = money.Ptr(money.FromCents(*adjustable))
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	var fee, adjustable *int64
	if a.Fee != nil {
		fee = centsPtr(*a.Fee)
	}
	if a.Adjustable != nil {
		adjustable = centsPtr(*a.Adjustable)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment
			(id, client_group_id, clinician_id, service_code, status, units,
			 start_date, end_date, appointment_fee, write_off, adjustable_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.ClientGroupID, a.ClinicianID, a.ServiceCode, a.Status, a.Units,
		a.StartDate, a.EndDate, fee, a.WriteOff.Cents(), adjustable)
	return err
}

func centsPtr(m money.Amount) *int64 {
	c := m.Cents()
	return &c
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment a WHERE a.id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment a WHERE a.id = $1 FOR UPDATE OF a`, id))
}

// buildWhere renders the filter into a WHERE clause with positional args.
// The note-status predicate runs as EXISTS so it filters rows before any
// LIMIT/OFFSET is applied.
func buildWhere(f Filter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if !f.From.IsZero() {
		add(`a.start_date >= $%d`, f.From)
	}
	if !f.To.IsZero() {
		add(`a.start_date <= $%d`, f.To)
	}
	if f.ClientGroupID != nil {
		add(`a.client_group_id = $%d`, *f.ClientGroupID)
	}
	if f.ClinicianID != nil {
		add(`a.clinician_id = $%d`, *f.ClinicianID)
	}
	if f.Status != nil {
		add(`a.status = $%d`, *f.Status)
	}
	if f.NoteStatus != nil {
		exists := `EXISTS (SELECT 1 FROM progress_note n WHERE n.appointment_id = a.id)`
		if *f.NoteStatus == NoteCompleted {
			clauses = append(clauses, exists)
		} else {
			clauses = append(clauses, `NOT `+exists)
		}
	}

	if len(clauses) == 0 {
		return ``, nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	where, args := buildWhere(f)
	sql := `SELECT ` + apptCols + ` FROM appointment a` + where +
		` ORDER BY a.start_date ASC, a.id ASC`
	if f.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

func (r *repoPG) Count(ctx context.Context, f Filter) (int, error) {
	where, args := buildWhere(f)
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total)
	return total, err
}

func (r *repoPG) NoteStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT appointment_id FROM progress_note
		WHERE appointment_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

func (r *repoPG) UpdateBilling(ctx context.Context, id uuid.UUID, fee, writeOff, adjustable money.Amount) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET appointment_fee = $2, write_off = $3, adjustable_amount = $4, updated_at = now()
		WHERE id = $1`,
		id, fee.Cents(), writeOff.Cents(), adjustable.Cents())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *repoPG) CreateProgressNote(ctx context.Context, n *ProgressNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO progress_note (id, appointment_id, body, completed)
		VALUES ($1, $2, $3, $4)`,
		n.ID, n.AppointmentID, n.Body, n.Completed)
	return err
}
