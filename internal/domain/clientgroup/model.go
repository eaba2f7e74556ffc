package clientgroup

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// GroupType classifies the billing unit.
type GroupType string

const (
	TypeIndividual GroupType = "INDIVIDUAL"
	TypeCouple     GroupType = "COUPLE"
	TypeFamily     GroupType = "FAMILY"
)

func (t GroupType) Valid() bool {
	switch t {
	case TypeIndividual, TypeCouple, TypeFamily:
		return true
	}
	return false
}

// ClientGroup is a billing unit: an individual, couple, or family. Balances
// are owed by the group, not by individual clients.
type ClientGroup struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      GroupType `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Client is a person who can belong to one or more client groups.
type Client struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MembershipRole is the client's role within the group.
type MembershipRole string

const (
	RolePrimary   MembershipRole = "PRIMARY"
	RoleSecondary MembershipRole = "SECONDARY"
	RoleChild     MembershipRole = "CHILD"
	RoleContact   MembershipRole = "CONTACT"
)

// Membership links a client to a group. First/last name are denormalized from
// the client row when memberships are loaded.
type Membership struct {
	ID                      uuid.UUID      `db:"id" json:"id"`
	ClientGroupID           uuid.UUID      `db:"client_group_id" json:"client_group_id"`
	ClientID                uuid.UUID      `db:"client_id" json:"client_id"`
	Role                    MembershipRole `db:"role" json:"role"`
	IsResponsibleForBilling bool           `db:"is_responsible_for_billing" json:"is_responsible_for_billing"`
	IsContactOnly           bool           `db:"is_contact_only" json:"is_contact_only"`
	FirstName               string         `db:"first_name" json:"first_name"`
	LastName                string         `db:"last_name" json:"last_name"`
	CreatedAt               time.Time      `db:"created_at" json:"created_at"`
}

// ResponsibleBiller picks the member accountable for the group's balance:
//
//  1. the first membership flagged responsible-for-billing, ordered by
//     created_at ascending with client id as tiebreak;
//  2. otherwise the oldest non-contact-only membership, same ordering;
//  3. otherwise nil — callers render a neutral placeholder.
//
// A group may carry zero, one, or many responsible flags; the result is
// always a single membership or nil, never an ambiguous set.
func ResponsibleBiller(members []*Membership) *Membership {
	if len(members) == 0 {
		return nil
	}

	ordered := make([]*Membership, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ClientID.String() < ordered[j].ClientID.String()
	})

	for _, m := range ordered {
		if m.IsResponsibleForBilling {
			return m
		}
	}
	for _, m := range ordered {
		if !m.IsContactOnly {
			return m
		}
	}
	return nil
}
