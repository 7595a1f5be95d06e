package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- make sure transfers happen from one account to another one
				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_not_same_account
				CHECK (debit_account_id != credit_account_id);

				ALTER TABLE transaction_entries
				ADD CONSTRAINT check_positive_amount
				CHECK (amount > 0);

			-- amounts are unsigned 256 bit integers
				ALTER TABLE invoices
				ADD CONSTRAINT check_amount_range
				CHECK (amount > 0 AND amount <= 115792089237316195423570985008687907853269984665640564039457584007913129639935);

				ALTER TABLE invoices
				ADD CONSTRAINT check_paid_amount
				CHECK (paid_amount = 0 OR paid_amount = amount);

			-- overdue (4) is derived when reading and never stored
				ALTER TABLE invoices
				ADD CONSTRAINT check_status
				CHECK (status BETWEEN 0 AND 3);

				ALTER TABLE attestations
				ADD CONSTRAINT check_level
				CHECK (level BETWEEN 0 AND 3);

				ALTER TABLE attestations
				ADD CONSTRAINT check_verified_level
				CHECK (NOT is_verified OR (level > 0 AND expires_at IS NOT NULL));
		`
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
