package clientgroup

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func member(created time.Time, responsible, contactOnly bool, first string) *Membership {
	return &Membership{
		ID:                      uuid.New(),
		ClientID:                uuid.New(),
		Role:                    RolePrimary,
		IsResponsibleForBilling: responsible,
		IsContactOnly:           contactOnly,
		FirstName:               first,
		LastName:                "Doe",
		CreatedAt:               created,
	}
}

func TestResponsibleBillerSingleFlagged(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	flagged := member(t2, true, false, "Pat")
	members := []*Membership{member(t1, false, false, "Alex"), flagged}

	got := ResponsibleBiller(members)
	if got != flagged {
		t.Errorf("expected flagged member, got %+v", got)
	}
}

func TestResponsibleBillerMultipleFlaggedFirstWins(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	older := member(t1, true, false, "Older")
	newer := member(t2, true, false, "Newer")

	// Input order must not matter.
	got := ResponsibleBiller([]*Membership{newer, older})
	if got != older {
		t.Errorf("expected earliest flagged member, got %q", got.FirstName)
	}
}

func TestResponsibleBillerZeroFlaggedOldestWins(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	oldest := member(t1, false, false, "Oldest")
	got := ResponsibleBiller([]*Membership{member(t2, false, false, "Newer"), oldest})
	if got != oldest {
		t.Errorf("expected oldest member, got %q", got.FirstName)
	}
}

func TestResponsibleBillerSkipsContactOnly(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	contact := member(t1, false, true, "Contact")
	client := member(t1.Add(time.Hour), false, false, "Client")
	got := ResponsibleBiller([]*Membership{contact, client})
	if got != client {
		t.Errorf("expected non-contact member, got %q", got.FirstName)
	}
}

func TestResponsibleBillerNoEligibleMembers(t *testing.T) {
	if got := ResponsibleBiller(nil); got != nil {
		t.Errorf("expected nil for empty group, got %+v", got)
	}
	onlyContacts := []*Membership{member(time.Now(), false, true, "A"), member(time.Now(), false, true, "B")}
	if got := ResponsibleBiller(onlyContacts); got != nil {
		t.Errorf("expected nil for contact-only group, got %+v", got)
	}
}

func TestResponsibleBillerCreatedAtTiebreakByClientID(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := member(at, true, false, "A")
	b := member(at, true, false, "B")
	want := a
	if b.ClientID.String() < a.ClientID.String() {
		want = b
	}

	if got := ResponsibleBiller([]*Membership{a, b}); got != want {
		t.Errorf("tiebreak picked %q, want %q", got.FirstName, want.FirstName)
	}
	// Deterministic regardless of input order.
	if got := ResponsibleBiller([]*Membership{b, a}); got != want {
		t.Errorf("tiebreak not stable across input order")
	}
}
