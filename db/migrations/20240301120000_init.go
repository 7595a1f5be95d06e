package migrations

import (
	"context"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/uptrace/bun"
)

/* This init reflects the latest model fields when run on a fresh db.
Later migrations that add or remove columns have to use IfNotExists/IfExists.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{
			(*models.Attestation)(nil),
			(*models.Invoice)(nil),
			(*models.Account)(nil),
			(*models.TransactionEntry)(nil),
			(*models.Verifier)(nil),
		} {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := db.NewCreateIndex().
			Model((*models.Invoice)(nil)).
			Index("index_invoices_on_creator").
			Column("creator", "id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model((*models.Invoice)(nil)).
			Index("index_invoices_on_payer").
			Column("payer", "id").
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
		_, err := db.NewCreateIndex().
			Model((*models.TransactionEntry)(nil)).
			Index("index_transaction_entries_on_invoice_id").
			Column("invoice_id").
			IfNotExists().
			Exec(ctx)
		return err
	}, nil)
}
