package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
)

// StoreReader holds the queries available inside and outside of transactions.
// Lookups of missing records return ErrNotFound.
type StoreReader interface {
	GetAttestation(ctx context.Context, subject common.Address) (*models.Attestation, error)
	GetInvoice(ctx context.Context, id uint64) (*models.Invoice, error)
	// InvoiceIDsByCreator and InvoiceIDsByPayer return ids in creation order.
	InvoiceIDsByCreator(ctx context.Context, creator common.Address) ([]uint64, error)
	InvoiceIDsByPayer(ctx context.Context, payer common.Address) ([]uint64, error)
	LastInvoiceID(ctx context.Context) (uint64, error)
	IsVerifier(ctx context.Context, address common.Address) (bool, error)
	ListVerifiers(ctx context.Context) ([]models.Verifier, error)
	// Balance is the sum of credits minus the sum of debits of the account, zero for unknown accounts.
	Balance(ctx context.Context, address common.Address, accountType string) (*big.Int, error)
}

// StoreTx is the view of the store inside RunInTx. GetInvoice locks the
// returned invoice until the transaction ends.
type StoreTx interface {
	StoreReader
	SaveAttestation(ctx context.Context, attestation *models.Attestation) error
	// InsertInvoice assigns the next dense id to invoice.ID.
	InsertInvoice(ctx context.Context, invoice *models.Invoice) error
	UpdateInvoice(ctx context.Context, invoice *models.Invoice) error
	GetOrCreateAccount(ctx context.Context, address common.Address, accountType string) (*models.Account, error)
	InsertTransactionEntry(ctx context.Context, entry *models.TransactionEntry) error
	// AddVerifier reports false when the address already was a verifier.
	AddVerifier(ctx context.Context, verifier *models.Verifier) (bool, error)
	// RemoveVerifier reports false when the address was not a verifier.
	RemoveVerifier(ctx context.Context, address common.Address) (bool, error)
}

// Store is the transactional persistence of the registry and the ledger.
// Either every write of fn is committed or none is.
type Store interface {
	StoreReader
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
	Close() error
}
