package clientgroup

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, g *ClientGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClientGroup, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*ClientGroup, error)
	List(ctx context.Context, limit, offset int) ([]*ClientGroup, int, error)

	CreateClient(ctx context.Context, cl *Client) error
	AddMembership(ctx context.Context, m *Membership) error
	ListMemberships(ctx context.Context, groupID uuid.UUID) ([]*Membership, error)
	// ListMembershipsForGroups loads memberships (with client names) for many
	// groups at once, keyed by group id.
	ListMembershipsForGroups(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]*Membership, error)
}
