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
			-- make sure that current and fees accounts never go negative
				CREATE OR REPLACE FUNCTION check_balance()
					RETURNS TRIGGER AS $$
				DECLARE
					sum NUMERIC;
					debit_account_type VARCHAR;
				BEGIN
					-- incoming accounts are where payments come from, they go negative
					SELECT INTO debit_account_type type
					FROM accounts
					WHERE id = NEW.debit_account_id AND type <> 'incoming'
					-- lock the row but do not wait, two transactions locking the same accounts would deadlock
					FOR UPDATE NOWAIT;

					IF debit_account_type IS NULL
					THEN
						RETURN NEW;
					END IF;

					SELECT INTO sum SUM(amount)
					FROM account_ledgers
					WHERE account_ledgers.account_id = NEW.debit_account_id;

					IF sum < 0
					THEN
						RAISE EXCEPTION 'invalid balance [invoice_id:%] [debit_account_id:%] balance [%]',
						NEW.invoice_id,
						NEW.debit_account_id,
						sum;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;

				DROP TRIGGER IF EXISTS check_balance ON transaction_entries;

				-- deferred to the end of the transaction so all entries of a settlement are checked together
				CREATE CONSTRAINT TRIGGER check_balance
				AFTER INSERT OR UPDATE ON transaction_entries
				DEFERRABLE INITIALLY DEFERRED
				FOR EACH ROW EXECUTE PROCEDURE check_balance();
		`
		if _, err := db.ExecContext(ctx, sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
