package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

type InvoiceStatus uint8

const (
	InvoiceStatusCreated InvoiceStatus = iota
	InvoiceStatusSent
	InvoiceStatusPaid
	InvoiceStatusCancelled
	// InvoiceStatusOverdue is reported, never stored.
	InvoiceStatusOverdue
)

var invoiceStatusNames = [...]string{"created", "sent", "paid", "cancelled", "overdue"}

func (s InvoiceStatus) String() string {
	if int(s) < len(invoiceStatusNames) {
		return invoiceStatusNames[s]
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range invoiceStatusNames {
		if s == name {
			return InvoiceStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown invoice status %q", s)
}

// Invoice : Invoice Model
type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID              uint64          `json:"id" bun:",pk"`
	Creator         common.Address  `json:"creator" bun:",notnull,type:bytea"`
	Payer           common.Address  `json:"payer" bun:",notnull,type:bytea"`
	Amount          Amount          `json:"amount" bun:",notnull,type:numeric(78,0)"`
	Description     string          `json:"description" bun:",notnull,default:''"`
	ExternalDataRef string          `json:"external_data_ref" bun:",notnull,default:''"`
	DueDate         time.Time       `json:"due_date" bun:",notnull"`
	Status          InvoiceStatus   `json:"status" bun:",notnull,default:0"`
	KYCRequired     bool            `json:"kyc_required" bun:"kyc_required,notnull,default:false"`
	PaidBy          *common.Address `json:"paid_by,omitempty" bun:",type:bytea"`
	PaidAmount      Amount          `json:"paid_amount" bun:",notnull,type:numeric(78,0),default:0"`
	Fee             Amount          `json:"fee" bun:",notnull,type:numeric(78,0),default:0"`
	Refunded        Amount          `json:"refunded" bun:",notnull,type:numeric(78,0),default:0"`
	CreatedAt       time.Time       `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	PaidAt          bun.NullTime    `json:"paid_at"`
	CancelledAt     bun.NullTime    `json:"cancelled_at"`
	UpdatedAt       bun.NullTime    `json:"updated_at"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// IsPayable is true for invoices that were neither paid nor cancelled.
// Overdue invoices stay payable.
func (i *Invoice) IsPayable() bool {
	return i.Status == InvoiceStatusCreated || i.Status == InvoiceStatusSent
}

// StatusAt derives the reported status, open invoices past their due date are overdue.
func (i *Invoice) StatusAt(now time.Time) InvoiceStatus {
	if i.IsPayable() && !now.Before(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)
