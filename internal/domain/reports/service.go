package reports

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebooks/carebooks/internal/domain/billing"
	"github.com/carebooks/carebooks/internal/domain/clientgroup"
	"github.com/carebooks/carebooks/internal/domain/scheduling"
	"github.com/carebooks/carebooks/internal/platform/apperr"
	"github.com/carebooks/carebooks/pkg/money"
	"github.com/carebooks/carebooks/pkg/pagination"
)

// AppointmentSource is the slice of the scheduling repository the reports
// consume.
type AppointmentSource interface {
	List(ctx context.Context, f scheduling.Filter) ([]*scheduling.Appointment, error)
	Count(ctx context.Context, f scheduling.Filter) (int, error)
	NoteStatuses(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type InvoiceSource interface {
	ListByAppointmentIDs(ctx context.Context, apptIDs []uuid.UUID) (map[uuid.UUID]*billing.Invoice, error)
	ListWithActivityInRange(ctx context.Context, from, to time.Time) ([]*billing.Invoice, error)
}

type GroupSource interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*clientgroup.ClientGroup, error)
	ListMembershipsForGroups(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]*clientgroup.Membership, error)
}

type Service struct {
	appts    AppointmentSource
	invoices InvoiceSource
	groups   GroupSource
	log      zerolog.Logger
}

func NewService(appts AppointmentSource, invoices InvoiceSource, groups GroupSource, log zerolog.Logger) *Service {
	return &Service{
		appts:    appts,
		invoices: invoices,
		groups:   groups,
		log:      log.With().Str("component", "reports").Logger(),
	}
}

// endOfDay normalizes the inclusive range end to 23:59:59.999 of that day.
// Millisecond precision matches the stored timestamp resolution; anything
// later the same day falls outside the range.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) validate() error {
	if r.Start.IsZero() {
		return apperr.Validation("startDate", "startDate is required")
	}
	if r.End.IsZero() {
		return apperr.Validation("endDate", "endDate is required")
	}
	if r.End.Before(r.Start) {
		return apperr.Validation("endDate", "endDate must not precede startDate")
	}
	return nil
}

type AppointmentStatusQuery struct {
	Range         DateRange
	ClientGroupID *uuid.UUID
	ClinicianID   *uuid.UUID
	Status        *scheduling.AppointmentStatus
	NoteStatus    *scheduling.NoteStatus
	Page          pagination.Params
}

// AppointmentStatus builds the per-appointment report. Every filter is pushed
// into the query before the page window is cut, so totals stay consistent
// with the rows.
func (s *Service) AppointmentStatus(ctx context.Context, q AppointmentStatusQuery) (*AppointmentStatusReport, error) {
	if err := q.Range.validate(); err != nil {
		return nil, err
	}
	if !q.Page.Valid() {
		return nil, apperr.Validation("page", "page and pageSize must be positive")
	}

	f := scheduling.Filter{
		From:          q.Range.Start,
		To:            endOfDay(q.Range.End),
		ClientGroupID: q.ClientGroupID,
		ClinicianID:   q.ClinicianID,
		Status:        q.Status,
		NoteStatus:    q.NoteStatus,
		Limit:         q.Page.PageSize,
		Offset:        q.Page.Offset(),
	}

	total, err := s.appts.Count(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	appts, err := s.appts.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	apptIDs := make([]uuid.UUID, len(appts))
	groupIDSet := make(map[uuid.UUID]struct{})
	for i, a := range appts {
		apptIDs[i] = a.ID
		groupIDSet[a.ClientGroupID] = struct{}{}
	}

	invoiceByAppt, err := s.invoices.ListByAppointmentIDs(ctx, apptIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	hasNote, err := s.appts.NoteStatuses(ctx, apptIDs)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	groupNames, err := s.groupNames(ctx, groupIDSet)
	if err != nil {
		return nil, err
	}

	rows := make([]AppointmentRow, 0, len(appts))
	for _, a := range appts {
		inv := invoiceByAppt[a.ID]
		settled := billing.Settle(inv)

		charge := a.Charge()
		uninvoiced := money.Amount(0)
		if inv == nil {
			uninvoiced = charge
		}

		noteStatus := scheduling.NoteMissing
		if hasNote[a.ID] {
			noteStatus = scheduling.NoteCompleted
		}

		if settled.Outstanding.IsNegative() {
			s.log.Warn().
				Str("appointment_id", a.ID.String()).
				Int64("overpaid", settled.Outstanding.Neg().Cents()).
				Msg("invoice overpaid")
		}

		rows = append(rows, AppointmentRow{
			ID:                 a.ID,
			DateOfService:      a.StartDate,
			Client:             groupNames[a.ClientGroupID],
			Units:              a.Units,
			TotalFee:           money.ValueOrZero(a.Fee),
			ProgressNoteStatus: noteStatus,
			Status:             a.Status,
			Charge:             charge,
			Uninvoiced:         uninvoiced,
			Paid:               settled.Paid,
			Unpaid:             settled.Unpaid,
		})
	}

	return &AppointmentStatusReport{
		Rows:       rows,
		Pagination: pagination.NewMeta(q.Page, total),
	}, nil
}

func (s *Service) groupNames(ctx context.Context, idSet map[uuid.UUID]struct{}) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	groups, err := s.groups.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	names := make(map[uuid.UUID]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names, nil
}

type OutstandingBalanceQuery struct {
	Range DateRange
	Page  pagination.Params
}

// groupLedger accumulates one client group's in-range money movements before
// they are shaped into a BalanceRow.
type groupLedger struct {
	services        money.Amount
	invoiced        money.Amount
	invoicedToAppts money.Amount
	paid            money.Amount
}

// OutstandingBalances rolls every client group's in-range activity into one
// row per group, with grand totals over the full set. Groups with no activity
// at all are left out.
func (s *Service) OutstandingBalances(ctx context.Context, q OutstandingBalanceQuery) (*OutstandingBalanceReport, error) {
	if err := q.Range.validate(); err != nil {
		return nil, err
	}
	if !q.Page.Valid() {
		return nil, apperr.Validation("page", "page and pageSize must be positive")
	}
	from, to := q.Range.Start, endOfDay(q.Range.End)

	appts, err := s.appts.List(ctx, scheduling.Filter{From: from, To: to})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	invoices, err := s.invoices.ListWithActivityInRange(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	ledgers := make(map[uuid.UUID]*groupLedger)
	ledger := func(groupID uuid.UUID) *groupLedger {
		l, ok := ledgers[groupID]
		if !ok {
			l = &groupLedger{}
			ledgers[groupID] = l
		}
		return l
	}

	for _, a := range appts {
		ledger(a.ClientGroupID).services = ledger(a.ClientGroupID).services.Add(a.Charge())
	}

	inRange := func(t time.Time) bool { return !t.Before(from) && !t.After(to) }
	for _, inv := range invoices {
		l := ledger(inv.ClientGroupID)
		if inv.Status.CountsTowardBalance() && inRange(inv.IssuedDate) {
			l.invoiced = l.invoiced.Add(inv.Amount)
			if inv.AppointmentID != nil {
				l.invoicedToAppts = l.invoicedToAppts.Add(inv.Amount)
			}
		}
		for _, p := range inv.Payments {
			if p.Counts() && inRange(p.PaymentDate) {
				l.paid = l.paid.Add(p.Amount).Add(p.CreditApplied)
			}
		}
	}

	groupIDSet := make(map[uuid.UUID]struct{}, len(ledgers))
	for id, l := range ledgers {
		if l.services.IsZero() && l.invoiced.IsZero() && l.paid.IsZero() {
			delete(ledgers, id)
			continue
		}
		groupIDSet[id] = struct{}{}
	}

	names, err := s.groupNames(ctx, groupIDSet)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(groupIDSet))
	for id := range groupIDSet {
		ids = append(ids, id)
	}
	memberships, err := s.groups.ListMembershipsForGroups(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	rows := make([]BalanceRow, 0, len(ledgers))
	var totals BalanceTotals
	for id, l := range ledgers {
		uninvoicedRaw := l.services.Sub(l.invoicedToAppts)
		if uninvoicedRaw.IsNegative() {
			s.log.Warn().
				Str("client_group_id", id.String()).
				Int64("over_invoiced", uninvoicedRaw.Neg().Cents()).
				Msg("group invoiced beyond services provided")
		}

		row := BalanceRow{
			ClientGroupID:    id,
			ClientGroupName:  names[id],
			ServicesProvided: l.services,
			Uninvoiced:       money.Max(uninvoicedRaw, 0),
			UninvoicedRaw:    uninvoicedRaw,
			Invoiced:         l.invoiced,
			ClientPaid:       l.paid,
			ClientBalance:    l.invoiced.Sub(l.paid),
		}
		if biller := clientgroup.ResponsibleBiller(memberships[id]); biller != nil {
			first, last := biller.FirstName, biller.LastName
			row.ResponsibleFirstName = &first
			row.ResponsibleLastName = &last
		}
		rows = append(rows, row)

		totals.ServicesProvided = totals.ServicesProvided.Add(row.ServicesProvided)
		totals.Uninvoiced = totals.Uninvoiced.Add(row.Uninvoiced)
		totals.UninvoicedRaw = totals.UninvoicedRaw.Add(row.UninvoicedRaw)
		totals.Invoiced = totals.Invoiced.Add(row.Invoiced)
		totals.ClientPaid = totals.ClientPaid.Add(row.ClientPaid)
		totals.ClientBalance = totals.ClientBalance.Add(row.ClientBalance)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ni, nj := strings.ToLower(rows[i].ClientGroupName), strings.ToLower(rows[j].ClientGroupName)
		if ni != nj {
			return ni < nj
		}
		return rows[i].ClientGroupID.String() < rows[j].ClientGroupID.String()
	})

	total := len(rows)
	start, end := q.Page.Slice(total)
	return &OutstandingBalanceReport{
		Rows:       rows[start:end],
		Totals:     totals,
		Pagination: pagination.NewMeta(q.Page, total),
	}, nil
}
