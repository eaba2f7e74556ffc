package clientgroup

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebooks/carebooks/internal/platform/apperr"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "clientgroup").Logger()}
}

type CreateGroupInput struct {
	Name string    `json:"name" validate:"required,max=200"`
	Type GroupType `json:"type" validate:"required"`
}

func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (*ClientGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name", "name is required")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("type", "type must be INDIVIDUAL, COUPLE, or FAMILY")
	}

	g := &ClientGroup{Name: name, Type: in.Type}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info().Str("client_group_id", g.ID.String()).Str("type", string(g.Type)).Msg("client group created")
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*ClientGroup, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context, limit, offset int) ([]*ClientGroup, int, error) {
	return s.repo.List(ctx, limit, offset)
}

type CreateClientInput struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (*Client, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" {
		return nil, apperr.Validation("first_name", "first name is required")
	}
	if last == "" {
		return nil, apperr.Validation("last_name", "last name is required")
	}

	cl := &Client{FirstName: first, LastName: last}
	if err := s.repo.CreateClient(ctx, cl); err != nil {
		return nil, apperr.Internal(err)
	}
	return cl, nil
}

type AddMembershipInput struct {
	ClientID                uuid.UUID      `json:"client_id" validate:"required"`
	Role                    MembershipRole `json:"role" validate:"required"`
	IsResponsibleForBilling bool           `json:"is_responsible_for_billing"`
	IsContactOnly           bool           `json:"is_contact_only"`
}

func (s *Service) AddMembership(ctx context.Context, groupID uuid.UUID, in AddMembershipInput) (*Membership, error) {
	switch in.Role {
	case RolePrimary, RoleSecondary, RoleChild, RoleContact:
	default:
		return nil, apperr.Validation("role", "unknown membership role")
	}
	if in.ClientID == uuid.Nil {
		return nil, apperr.Validation("client_id", "client_id is required")
	}
	if _, err := s.repo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	m := &Membership{
		ClientGroupID:           groupID,
		ClientID:                in.ClientID,
		Role:                    in.Role,
		IsResponsibleForBilling: in.IsResponsibleForBilling,
		IsContactOnly:           in.IsContactOnly,
	}
	if err := s.repo.AddMembership(ctx, m); err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

func (s *Service) ListMemberships(ctx context.Context, groupID uuid.UUID) ([]*Membership, error) {
	if _, err := s.repo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.ListMemberships(ctx, groupID)
}

// GroupResponsibleBiller resolves the member accountable for the group's
// balance, or nil when no eligible member exists.
func (s *Service) GroupResponsibleBiller(ctx context.Context, groupID uuid.UUID) (*Membership, error) {
	members, err := s.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return ResponsibleBiller(members), nil
}
