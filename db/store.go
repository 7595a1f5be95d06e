package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/uptrace/bun"
)

// invoiceIDLock is the advisory lock serializing invoice id assignment across instances.
const invoiceIDLock = 7_310_001

// Store persists attestations, invoices and the ledger in postgres.
type Store struct {
	DB *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx service.StoreTx) error) error {
	return s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &storeTx{reader{db: tx, forUpdate: true}})
	})
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) GetAttestation(ctx context.Context, subject common.Address) (*models.Attestation, error) {
	return reader{db: s.DB}.GetAttestation(ctx, subject)
}

func (s *Store) GetInvoice(ctx context.Context, id uint64) (*models.Invoice, error) {
	return reader{db: s.DB}.GetInvoice(ctx, id)
}

func (s *Store) InvoiceIDsByCreator(ctx context.Context, creator common.Address) ([]uint64, error) {
	return reader{db: s.DB}.InvoiceIDsByCreator(ctx, creator)
}

func (s *Store) InvoiceIDsByPayer(ctx context.Context, payer common.Address) ([]uint64, error) {
	return reader{db: s.DB}.InvoiceIDsByPayer(ctx, payer)
}

func (s *Store) LastInvoiceID(ctx context.Context) (uint64, error) {
	return reader{db: s.DB}.LastInvoiceID(ctx)
}

func (s *Store) IsVerifier(ctx context.Context, address common.Address) (bool, error) {
	return reader{db: s.DB}.IsVerifier(ctx, address)
}

func (s *Store) ListVerifiers(ctx context.Context) ([]models.Verifier, error) {
	return reader{db: s.DB}.ListVerifiers(ctx)
}

func (s *Store) Balance(ctx context.Context, address common.Address, accountType string) (*big.Int, error) {
	return reader{db: s.DB}.Balance(ctx, address, accountType)
}

type reader struct {
	db bun.IDB
	// rows read inside a transaction are locked until it ends
	forUpdate bool
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return service.ErrNotFound
	}
	return err
}

func (r reader) GetAttestation(ctx context.Context, subject common.Address) (*models.Attestation, error) {
	attestation := new(models.Attestation)
	q := r.db.NewSelect().Model(attestation).Where("subject = ?", subject).Limit(1)
	if r.forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return attestation, nil
}

func (r reader) GetInvoice(ctx context.Context, id uint64) (*models.Invoice, error) {
	invoice := new(models.Invoice)
	q := r.db.NewSelect().Model(invoice).Where("id = ?", id).Limit(1)
	if r.forUpdate {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}
	return invoice, nil
}

func (r reader) invoiceIDs(ctx context.Context, column string, address common.Address) ([]uint64, error) {
	ids := []uint64{}
	err := r.db.NewSelect().
		Model((*models.Invoice)(nil)).
		Column("id").
		Where("? = ?", bun.Ident(column), address).
		OrderExpr("id ASC").
		Scan(ctx, &ids)
	return ids, err
}

func (r reader) InvoiceIDsByCreator(ctx context.Context, creator common.Address) ([]uint64, error) {
	return r.invoiceIDs(ctx, "creator", creator)
}

func (r reader) InvoiceIDsByPayer(ctx context.Context, payer common.Address) ([]uint64, error) {
	return r.invoiceIDs(ctx, "payer", payer)
}

func (r reader) LastInvoiceID(ctx context.Context) (uint64, error) {
	var last uint64
	err := r.db.NewSelect().
		Model((*models.Invoice)(nil)).
		ColumnExpr("coalesce(max(id), 0)").
		Scan(ctx, &last)
	return last, err
}

func (r reader) IsVerifier(ctx context.Context, address common.Address) (bool, error) {
	return r.db.NewSelect().
		Model((*models.Verifier)(nil)).
		Where("address = ?", address).
		Exists(ctx)
}

func (r reader) ListVerifiers(ctx context.Context) ([]models.Verifier, error) {
	verifiers := []models.Verifier{}
	err := r.db.NewSelect().Model(&verifiers).OrderExpr("created_at ASC").Scan(ctx)
	return verifiers, err
}

func (r reader) Balance(ctx context.Context, address common.Address, accountType string) (*big.Int, error) {
	var sum string
	err := r.db.NewSelect().
		TableExpr("account_ledgers").
		ColumnExpr("coalesce(sum(account_ledgers.amount), 0)::text").
		Join("JOIN accounts ON accounts.id = account_ledgers.account_id").
		Where("accounts.address = ? AND accounts.type = ?", address, accountType).
		Scan(ctx, &sum)
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(sum, 10)
	if !ok {
		return nil, fmt.Errorf("unexpected balance %q", sum)
	}
	return balance, nil
}

type storeTx struct {
	reader
}

func (tx *storeTx) SaveAttestation(ctx context.Context, attestation *models.Attestation) error {
	_, err := tx.db.NewInsert().
		Model(attestation).
		On("CONFLICT (subject) DO UPDATE").
		Set("commitment = EXCLUDED.commitment").
		Set("is_verified = EXCLUDED.is_verified").
		Set("level = EXCLUDED.level").
		Set("external_data_ref = EXCLUDED.external_data_ref").
		Set("verified_by = EXCLUDED.verified_by").
		Set("verified_at = EXCLUDED.verified_at").
		Set("expires_at = EXCLUDED.expires_at").
		Set("revoked_at = EXCLUDED.revoked_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// InsertInvoice assigns the next id. Ids are dense, an id is only taken by a committed invoice.
func (tx *storeTx) InsertInvoice(ctx context.Context, invoice *models.Invoice) error {
	if _, err := tx.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", invoiceIDLock); err != nil {
		return err
	}
	last, err := tx.LastInvoiceID(ctx)
	if err != nil {
		return err
	}
	invoice.ID = last + 1
	_, err = tx.db.NewInsert().Model(invoice).Exec(ctx)
	return err
}

func (tx *storeTx) UpdateInvoice(ctx context.Context, invoice *models.Invoice) error {
	res, err := tx.db.NewUpdate().Model(invoice).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (tx *storeTx) GetOrCreateAccount(ctx context.Context, address common.Address, accountType string) (*models.Account, error) {
	account := &models.Account{Address: address, Type: accountType}
	_, err := tx.db.NewInsert().
		Model(account).
		On("CONFLICT (address, type) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	err = tx.db.NewSelect().
		Model(account).
		Where("address = ? AND type = ?", address, accountType).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (tx *storeTx) InsertTransactionEntry(ctx context.Context, entry *models.TransactionEntry) error {
	_, err := tx.db.NewInsert().Model(entry).Exec(ctx)
	return err
}

func (tx *storeTx) AddVerifier(ctx context.Context, verifier *models.Verifier) (bool, error) {
	res, err := tx.db.NewInsert().
		Model(verifier).
		On("CONFLICT (address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (tx *storeTx) RemoveVerifier(ctx context.Context, address common.Address) (bool, error) {
	res, err := tx.db.NewDelete().
		Model((*models.Verifier)(nil)).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var (
	_ service.Store   = (*Store)(nil)
	_ service.StoreTx = (*storeTx)(nil)
)
