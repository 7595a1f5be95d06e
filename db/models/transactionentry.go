package models

import (
	"time"
)

const (
	EntryTypePayout = "payout"
	EntryTypeFee    = "fee"
)

// TransactionEntry : Transaction Entries Model
type TransactionEntry struct {
	ID              int64     `bun:",pk,autoincrement"`
	InvoiceID       uint64    `bun:",notnull"`
	Invoice         *Invoice  `bun:"rel:belongs-to,join:invoice_id=id"`
	CreditAccountID int64     `bun:",notnull"`
	CreditAccount   *Account  `bun:"rel:belongs-to,join:credit_account_id=id"`
	DebitAccountID  int64     `bun:",notnull"`
	DebitAccount    *Account  `bun:"rel:belongs-to,join:debit_account_id=id"`
	Amount          Amount    `bun:",notnull,type:numeric(78,0)"`
	EntryType       string    `bun:",notnull"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
