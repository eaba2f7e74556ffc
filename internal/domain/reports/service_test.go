package reports

import (
	"context"
	"sort"
	"testing"
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

type fixture struct {
	appts       []*scheduling.Appointment
	notes       map[uuid.UUID]bool
	invoices    []*billing.Invoice
	groups      map[uuid.UUID]*clientgroup.ClientGroup
	memberships map[uuid.UUID][]*clientgroup.Membership
}

func newFixture() *fixture {
	return &fixture{
		notes:       make(map[uuid.UUID]bool),
		groups:      make(map[uuid.UUID]*clientgroup.ClientGroup),
		memberships: make(map[uuid.UUID][]*clientgroup.Membership),
	}
}

func (f *fixture) matches(a *scheduling.Appointment, flt scheduling.Filter) bool {
	if !flt.From.IsZero() && a.StartDate.Before(flt.From) {
		return false
	}
	if !flt.To.IsZero() && a.StartDate.After(flt.To) {
		return false
	}
	if flt.ClientGroupID != nil && a.ClientGroupID != *flt.ClientGroupID {
		return false
	}
	if flt.ClinicianID != nil && a.ClinicianID != *flt.ClinicianID {
		return false
	}
	if flt.Status != nil && a.Status != *flt.Status {
		return false
	}
	if flt.NoteStatus != nil {
		has := f.notes[a.ID]
		if *flt.NoteStatus == scheduling.NoteCompleted && !has {
			return false
		}
		if *flt.NoteStatus == scheduling.NoteMissing && has {
			return false
		}
	}
	return true
}

func (f *fixture) filtered(flt scheduling.Filter) []*scheduling.Appointment {
	var out []*scheduling.Appointment
	for _, a := range f.appts {
		if f.matches(a, flt) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (f *fixture) List(_ context.Context, flt scheduling.Filter) ([]*scheduling.Appointment, error) {
	out := f.filtered(flt)
	if flt.Limit > 0 {
		p := pagination.Params{Page: flt.Offset/flt.Limit + 1, PageSize: flt.Limit}
		start, end := p.Slice(len(out))
		out = out[start:end]
	}
	return out, nil
}

func (f *fixture) Count(_ context.Context, flt scheduling.Filter) (int, error) {
	return len(f.filtered(flt)), nil
}

func (f *fixture) NoteStatuses(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if f.notes[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fixture) ListByAppointmentIDs(_ context.Context, apptIDs []uuid.UUID) (map[uuid.UUID]*billing.Invoice, error) {
	out := make(map[uuid.UUID]*billing.Invoice)
	for _, inv := range f.invoices {
		if inv.AppointmentID == nil {
			continue
		}
		for _, id := range apptIDs {
			if *inv.AppointmentID == id {
				out[id] = inv
			}
		}
	}
	return out, nil
}

func (f *fixture) ListWithActivityInRange(_ context.Context, from, to time.Time) ([]*billing.Invoice, error) {
	var out []*billing.Invoice
	for _, inv := range f.invoices {
		issued := !inv.IssuedDate.Before(from) && !inv.IssuedDate.After(to)
		paidIn := false
		for _, p := range inv.Payments {
			if !p.PaymentDate.Before(from) && !p.PaymentDate.After(to) {
				paidIn = true
			}
		}
		if issued || paidIn {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fixture) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*clientgroup.ClientGroup, error) {
	var out []*clientgroup.ClientGroup
	for _, id := range ids {
		if g, ok := f.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fixture) ListMembershipsForGroups(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]*clientgroup.Membership, error) {
	out := make(map[uuid.UUID][]*clientgroup.Membership)
	for _, id := range ids {
		if ms := f.memberships[id]; len(ms) > 0 {
			out[id] = ms
		}
	}
	return out, nil
}

func (f *fixture) addGroup(name string) uuid.UUID {
	id := uuid.New()
	f.groups[id] = &clientgroup.ClientGroup{ID: id, Name: name, Type: clientgroup.TypeIndividual}
	return id
}

func (f *fixture) addAppointment(groupID uuid.UUID, start time.Time, feeCents int64) *scheduling.Appointment {
	a := &scheduling.Appointment{
		ID:            uuid.New(),
		ClientGroupID: groupID,
		ClinicianID:   uuid.New(),
		ServiceCode:   "90837",
		Status:        scheduling.StatusShow,
		Units:         1,
		StartDate:     start,
		EndDate:       start.Add(time.Hour),
		Fee:           money.Ptr(money.FromCents(feeCents)),
	}
	f.appts = append(f.appts, a)
	return a
}

func (f *fixture) addInvoice(groupID uuid.UUID, apptID *uuid.UUID, issued time.Time, amountCents int64, status billing.InvoiceStatus) *billing.Invoice {
	inv := &billing.Invoice{
		ID:            uuid.New(),
		AppointmentID: apptID,
		ClientGroupID: groupID,
		Amount:        money.FromCents(amountCents),
		Status:        status,
		IssuedDate:    issued,
	}
	f.invoices = append(f.invoices, inv)
	return inv
}

func addPayment(inv *billing.Invoice, date time.Time, amountCents int64, status billing.PaymentStatus) {
	inv.Payments = append(inv.Payments, &billing.Payment{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		Amount:      money.FromCents(amountCents),
		Status:      status,
		PaymentDate: date,
	})
}

func newTestService(f *fixture) *Service {
	return NewService(f, f, f, zerolog.Nop())
}

var (
	rangeStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rangeEnd   = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	juneRange  = DateRange{Start: rangeStart, End: rangeEnd}
	inJune     = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	defaultPg  = pagination.Params{Page: 1, PageSize: 20}
)

// Fee 100, no invoice: charge=100, uninvoiced=100, paid=0, unpaid=0. After an
// invoice of 100 with a completed payment of 50: uninvoiced=0, paid=50,
// unpaid=50.
func TestAppointmentStatusEndToEndScenario(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Smith, Jane")
	a := f.addAppointment(groupID, inJune, 10000)
	svc := newTestService(f)
	ctx := context.Background()

	q := AppointmentStatusQuery{Range: juneRange, Page: defaultPg}
	report, err := svc.AppointmentStatus(ctx, q)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Charge.Cents() != 10000 || row.Uninvoiced.Cents() != 10000 ||
		!row.Paid.IsZero() || !row.Unpaid.IsZero() {
		t.Errorf("pre-invoice row = %+v", row)
	}
	if row.Client != "Smith, Jane" {
		t.Errorf("client = %q", row.Client)
	}
	if row.ProgressNoteStatus != scheduling.NoteMissing {
		t.Errorf("note status = %q, want NO_NOTE", row.ProgressNoteStatus)
	}

	inv := f.addInvoice(groupID, &a.ID, inJune, 10000, billing.InvoiceUnpaid)
	addPayment(inv, inJune, 5000, billing.PaymentCompleted)
	f.notes[a.ID] = true

	report, err = svc.AppointmentStatus(ctx, q)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	row = report.Rows[0]
	if !row.Uninvoiced.IsZero() || row.Paid.Cents() != 5000 || row.Unpaid.Cents() != 5000 {
		t.Errorf("post-invoice row = %+v", row)
	}
	if row.ProgressNoteStatus != scheduling.NoteCompleted {
		t.Errorf("note status = %q, want COMPLETED", row.ProgressNoteStatus)
	}
}

func TestAppointmentStatusValidation(t *testing.T) {
	svc := newTestService(newFixture())
	ctx := context.Background()

	cases := []struct {
		name string
		q    AppointmentStatusQuery
	}{
		{"missing start", AppointmentStatusQuery{Range: DateRange{End: rangeEnd}, Page: defaultPg}},
		{"missing end", AppointmentStatusQuery{Range: DateRange{Start: rangeStart}, Page: defaultPg}},
		{"end before start", AppointmentStatusQuery{Range: DateRange{Start: rangeEnd, End: rangeStart}, Page: defaultPg}},
		{"zero page", AppointmentStatusQuery{Range: juneRange, Page: pagination.Params{Page: 0, PageSize: 20}}},
		{"zero page size", AppointmentStatusQuery{Range: juneRange, Page: pagination.Params{Page: 1, PageSize: 0}}},
	}
	for _, tc := range cases {
		if _, err := svc.AppointmentStatus(ctx, tc.q); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

// An appointment at exactly 23:59:59.999 of the end date is in range; one
// microsecond later is out.
func TestAppointmentStatusEndDateBoundary(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Boundary")
	edge := time.Date(2025, 6, 30, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	f.addAppointment(groupID, edge, 100)
	f.addAppointment(groupID, edge.Add(time.Microsecond), 100)
	svc := newTestService(f)

	report, err := svc.AppointmentStatus(context.Background(), AppointmentStatusQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Pagination.Total != 1 {
		t.Errorf("total = %d, want 1 (boundary inclusive, later excluded)", report.Pagination.Total)
	}
}

func TestAppointmentStatusNoteFilterBeforePagination(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Notes")
	for i := 0; i < 5; i++ {
		a := f.addAppointment(groupID, inJune.Add(time.Duration(i)*time.Hour), 100)
		if i%2 == 0 {
			f.notes[a.ID] = true
		}
	}
	svc := newTestService(f)

	ns := scheduling.NoteCompleted
	report, err := svc.AppointmentStatus(context.Background(), AppointmentStatusQuery{
		Range:      juneRange,
		NoteStatus: &ns,
		Page:       pagination.Params{Page: 1, PageSize: 2},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Pagination.Total != 3 {
		t.Errorf("total = %d, want 3 noted appointments", report.Pagination.Total)
	}
	if len(report.Rows) != 2 {
		t.Errorf("page rows = %d, want 2", len(report.Rows))
	}
	for _, row := range report.Rows {
		if row.ProgressNoteStatus != scheduling.NoteCompleted {
			t.Errorf("unnoted row leaked through the filter: %+v", row)
		}
	}
}

func TestAppointmentStatusPaginationConsistency(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Many")
	for i := 0; i < 7; i++ {
		f.addAppointment(groupID, inJune.Add(time.Duration(i)*time.Hour), 100)
	}
	svc := newTestService(f)
	ctx := context.Background()

	seen := 0
	for page := 1; page <= 4; page++ {
		report, err := svc.AppointmentStatus(ctx, AppointmentStatusQuery{
			Range: juneRange,
			Page:  pagination.Params{Page: page, PageSize: 3},
		})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if report.Pagination.Total != 7 {
			t.Errorf("page %d: total = %d, want 7", page, report.Pagination.Total)
		}
		seen += len(report.Rows)
	}
	if seen != 7 {
		t.Errorf("rows across pages = %d, want 7", seen)
	}
}

func TestOutstandingBalancesRollup(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Adams Family")
	memberID := uuid.New()
	f.memberships[groupID] = []*clientgroup.Membership{{
		ID:                      uuid.New(),
		ClientGroupID:           groupID,
		ClientID:                memberID,
		Role:                    clientgroup.RolePrimary,
		IsResponsibleForBilling: true,
		FirstName:               "Gomez",
		LastName:                "Adams",
		CreatedAt:               inJune,
	}}

	a1 := f.addAppointment(groupID, inJune, 10000)
	f.addAppointment(groupID, inJune.Add(time.Hour), 5000)
	inv := f.addInvoice(groupID, &a1.ID, inJune, 10000, billing.InvoiceUnpaid)
	addPayment(inv, inJune, 4000, billing.PaymentCompleted)
	addPayment(inv, inJune, 9999, billing.PaymentPending)

	svc := newTestService(f)
	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(report.Rows))
	}
	row := report.Rows[0]
	if row.ServicesProvided.Cents() != 15000 {
		t.Errorf("servicesProvided = %d, want 15000", row.ServicesProvided.Cents())
	}
	if row.Invoiced.Cents() != 10000 {
		t.Errorf("invoiced = %d, want 10000", row.Invoiced.Cents())
	}
	if row.Uninvoiced.Cents() != 5000 {
		t.Errorf("uninvoiced = %d, want 5000", row.Uninvoiced.Cents())
	}
	if row.ClientPaid.Cents() != 4000 {
		t.Errorf("clientPaid = %d, want 4000 (completed only)", row.ClientPaid.Cents())
	}
	if row.ClientBalance.Cents() != 6000 {
		t.Errorf("clientBalance = %d, want 6000", row.ClientBalance.Cents())
	}
	if row.ResponsibleFirstName == nil || *row.ResponsibleFirstName != "Gomez" {
		t.Errorf("responsible first name = %v", row.ResponsibleFirstName)
	}

	if report.Totals.ServicesProvided.Cents() != 15000 || report.Totals.ClientBalance.Cents() != 6000 {
		t.Errorf("totals = %+v", report.Totals)
	}
}

func TestOutstandingBalancesExcludesInactiveGroups(t *testing.T) {
	f := newFixture()
	active := f.addGroup("Active")
	f.addGroup("Dormant")
	f.addAppointment(active, inJune, 100)
	svc := newTestService(f)

	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].ClientGroupName != "Active" {
		t.Errorf("expected only the active group, got %+v", report.Rows)
	}
}

// Void and draft invoices never count toward the balance; zero-charge
// appointments alone do not keep a group on the report.
func TestOutstandingBalancesIgnoresVoidAndDraftInvoices(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("Voided")
	f.addInvoice(groupID, nil, inJune, 10000, billing.InvoiceVoid)
	f.addInvoice(groupID, nil, inJune, 5000, billing.InvoiceDraft)
	svc := newTestService(f)

	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Errorf("void/draft-only group must be excluded, got %+v", report.Rows)
	}
}

func TestOutstandingBalancesSortedByNameCaseInsensitive(t *testing.T) {
	f := newFixture()
	for _, name := range []string{"zimmer", "Albright", "brown", "ALBA"} {
		g := f.addGroup(name)
		f.addAppointment(g, inJune, 100)
	}
	svc := newTestService(f)

	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var got []string
	for _, r := range report.Rows {
		got = append(got, r.ClientGroupName)
	}
	want := []string{"ALBA", "Albright", "brown", "zimmer"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", got, want)
		}
	}
}

// Charge must agree between the two reports for the same appointment.
func TestChargeRoundTripAcrossReports(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("RoundTrip")
	a := f.addAppointment(groupID, inJune, 12300)
	a.WriteOff = money.FromCents(300)
	a.Adjustable = money.Ptr(money.FromCents(2000))
	svc := newTestService(f)
	ctx := context.Background()

	statusReport, err := svc.AppointmentStatus(ctx, AppointmentStatusQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("status report: %v", err)
	}
	balanceReport, err := svc.OutstandingBalances(ctx, OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("balance report: %v", err)
	}
	charge := statusReport.Rows[0].Charge
	if charge.Cents() != 14000 {
		t.Errorf("charge = %d, want 14000", charge.Cents())
	}
	if balanceReport.Rows[0].ServicesProvided != charge {
		t.Errorf("servicesProvided %d != charge %d",
			balanceReport.Rows[0].ServicesProvided.Cents(), charge.Cents())
	}
}

func TestOutstandingBalancesOutOfRangePageEmptyRowsAccurateTotals(t *testing.T) {
	f := newFixture()
	g := f.addGroup("Only")
	f.addAppointment(g, inJune, 100)
	svc := newTestService(f)

	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{
		Range: juneRange,
		Page:  pagination.Params{Page: 9, PageSize: 10},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Errorf("out-of-range page must be empty, got %d rows", len(report.Rows))
	}
	if report.Pagination.Total != 1 {
		t.Errorf("total = %d, want 1", report.Pagination.Total)
	}
	if report.Totals.ServicesProvided.Cents() != 100 {
		t.Errorf("totals must cover the full set, got %+v", report.Totals)
	}
}

func TestOutstandingBalancesOverInvoicedRawSurfaced(t *testing.T) {
	f := newFixture()
	groupID := f.addGroup("OverInvoiced")
	a := f.addAppointment(groupID, inJune, 5000)
	f.addInvoice(groupID, &a.ID, inJune, 8000, billing.InvoiceUnpaid)
	svc := newTestService(f)

	report, err := svc.OutstandingBalances(context.Background(), OutstandingBalanceQuery{Range: juneRange, Page: defaultPg})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	row := report.Rows[0]
	if !row.Uninvoiced.IsZero() {
		t.Errorf("display uninvoiced = %d, want 0 (clamped)", row.Uninvoiced.Cents())
	}
	if row.UninvoicedRaw.Cents() != -3000 {
		t.Errorf("raw uninvoiced = %d, want -3000", row.UninvoicedRaw.Cents())
	}
}
