package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebooks/carebooks/internal/domain/scheduling"
	"github.com/carebooks/carebooks/pkg/money"
	"github.com/carebooks/carebooks/pkg/pagination"
)

// AppointmentRow is one appointment's billing snapshot on the status report.
type AppointmentRow struct {
	ID                 uuid.UUID                    `json:"id"`
	DateOfService      time.Time                    `json:"dateOfService"`
	Client             string                       `json:"client"`
	Units              int                          `json:"units"`
	TotalFee           money.Amount                 `json:"totalFee"`
	ProgressNoteStatus scheduling.NoteStatus        `json:"progressNoteStatus"`
	Status             scheduling.AppointmentStatus `json:"status"`
	Charge             money.Amount                 `json:"charge"`
	Uninvoiced         money.Amount                 `json:"uninvoiced"`
	Paid               money.Amount                 `json:"paid"`
	Unpaid             money.Amount                 `json:"unpaid"`
}

// AppointmentStatusReport is the paginated report payload.
type AppointmentStatusReport struct {
	Rows       []AppointmentRow `json:"rows"`
	Pagination pagination.Meta  `json:"pagination"`
}

// BalanceRow is one client group's rollup on the outstanding-balance report.
// Responsible name fields are nil when no eligible member exists.
// UninvoicedRaw keeps the unclamped figure; negative means over-invoiced.
type BalanceRow struct {
	ClientGroupID        uuid.UUID    `json:"clientGroupId"`
	ClientGroupName      string       `json:"clientGroupName"`
	ResponsibleFirstName *string      `json:"responsibleFirstName"`
	ResponsibleLastName  *string      `json:"responsibleLastName"`
	ServicesProvided     money.Amount `json:"servicesProvided"`
	Uninvoiced           money.Amount `json:"uninvoiced"`
	UninvoicedRaw        money.Amount `json:"uninvoicedRaw"`
	Invoiced             money.Amount `json:"invoiced"`
	ClientPaid           money.Amount `json:"clientPaid"`
	ClientBalance        money.Amount `json:"clientBalance"`
}

// BalanceTotals sums the numeric columns over the full filtered result set,
// not just the current page.
type BalanceTotals struct {
	ServicesProvided money.Amount `json:"servicesProvided"`
	Uninvoiced       money.Amount `json:"uninvoiced"`
	UninvoicedRaw    money.Amount `json:"uninvoicedRaw"`
	Invoiced         money.Amount `json:"invoiced"`
	ClientPaid       money.Amount `json:"clientPaid"`
	ClientBalance    money.Amount `json:"clientBalance"`
}

// OutstandingBalanceReport is the paginated rollup payload.
type OutstandingBalanceReport struct {
	Rows       []BalanceRow    `json:"rows"`
	Totals     BalanceTotals   `json:"totals"`
	Pagination pagination.Meta `json:"pagination"`
}
