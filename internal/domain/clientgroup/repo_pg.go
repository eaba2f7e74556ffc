package clientgroup

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/internal/platform/db"
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

const groupCols = `id, name, type, created_at, updated_at`

func scanGroup(row pgx.Row) (*ClientGroup, error) {
	var g ClientGroup
	err := row.Scan(&g.ID, &g.Name, &g.Type, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("client group")
	}
	return &g, err
}

func (r *repoPG) Create(ctx context.Context, g *ClientGroup) error {
	g.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client_group (id, name, type) VALUES ($1, $2, $3)`,
		g.ID, g.Name, g.Type)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClientGroup, error) {
	return scanGroup(r.conn(ctx).QueryRow(ctx, `SELECT `+groupCols+` FROM client_group WHERE id = $1`, id))
}

func (r *repoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*ClientGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+groupCols+` FROM client_group WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*ClientGroup
	for rows.Next() {
		var g ClientGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*ClientGroup, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM client_group`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+groupCols+` FROM client_group ORDER BY lower(name) ASC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var groups []*ClientGroup
	for rows.Next() {
		var g ClientGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Type, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, 0, err
		}
		groups = append(groups, &g)
	}
	return groups, total, rows.Err()
}

func (r *repoPG) CreateClient(ctx context.Context, cl *Client) error {
	cl.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client (id, first_name, last_name) VALUES ($1, $2, $3)`,
		cl.ID, cl.FirstName, cl.LastName)
	return err
}

func (r *repoPG) AddMembership(ctx context.Context, m *Membership) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO client_group_membership
			(id, client_group_id, client_id, role, is_responsible_for_billing, is_contact_only)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ClientGroupID, m.ClientID, m.Role, m.IsResponsibleForBilling, m.IsContactOnly)
	return err
}

const membershipCols = `m.id, m.client_group_id, m.client_id, m.role,
	m.is_responsible_for_billing, m.is_contact_only, c.first_name, c.last_name, m.created_at`

func scanMembership(rows pgx.Rows) (*Membership, error) {
	var m Membership
	err := rows.Scan(&m.ID, &m.ClientGroupID, &m.ClientID, &m.Role,
		&m.IsResponsibleForBilling, &m.IsContactOnly, &m.FirstName, &m.LastName, &m.CreatedAt)
	return &m, err
}

func (r *repoPG) ListMemberships(ctx context.Context, groupID uuid.UUID) ([]*Membership, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+membershipCols+`
		FROM client_group_membership m
		JOIN client c ON c.id = m.client_id
		WHERE m.client_group_id = $1
		ORDER BY m.created_at ASC, m.client_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *repoPG) ListMembershipsForGroups(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]*Membership, error) {
	result := make(map[uuid.UUID][]*Membership)
	if len(groupIDs) == 0 {
		return result, nil
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+membershipCols+`
		FROM client_group_membership m
		JOIN client c ON c.id = m.client_id
		WHERE m.client_group_id = ANY($1)
		ORDER BY m.created_at ASC, m.client_id ASC`, groupIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		result[m.ClientGroupID] = append(result[m.ClientGroupID], m)
	}
	return result, rows.Err()
}
