package service

import (
	"context"
	"errors"
	"maps"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
)

type accountKey struct {
	address     common.Address
	accountType string
}

// memoryState is never modified once committed. A transaction starts from a
// shallow copy and clones a table the first time it writes to it.
//
// The index slices and entries are append only. Transactions are serialized
// and a committed state never reads past its own length, so appending in
// place cannot be observed by it.
type memoryState struct {
	attestations  map[common.Address]models.Attestation
	invoices      map[uint64]models.Invoice
	lastInvoiceID uint64
	createdBy     map[common.Address][]uint64
	receivedBy    map[common.Address][]uint64
	accounts      map[accountKey]models.Account
	lastAccountID int64
	entries       []models.TransactionEntry
	// running balance per account id, values are replaced and never mutated
	balances  map[int64]*big.Int
	verifiers map[common.Address]models.Verifier
}

func newMemoryState() *memoryState {
	return &memoryState{
		attestations: map[common.Address]models.Attestation{},
		invoices:     map[uint64]models.Invoice{},
		createdBy:    map[common.Address][]uint64{},
		receivedBy:   map[common.Address][]uint64{},
		accounts:     map[accountKey]models.Account{},
		balances:     map[int64]*big.Int{},
		verifiers:    map[common.Address]models.Verifier{},
	}
}

type memoryTable uint8

const (
	tableAttestations memoryTable = 1 << iota
	tableInvoices
	tableAccounts
	tableBalances
	tableVerifiers
)

// MemoryStore keeps everything in process. Transactions are serialized and
// commit by swapping in the state they built.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

func (ms *MemoryStore) reader() memoryReader {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return memoryReader{s: ms.state}
}

func (ms *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error {
	ms.txMu.Lock()
	defer ms.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	fork := *ms.reader().s
	tx := &memoryTx{memoryReader: memoryReader{s: &fork}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	ms.mu.Lock()
	ms.state = tx.s
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStore) Close() error { return nil }

func (ms *MemoryStore) GetAttestation(ctx context.Context, subject common.Address) (*models.Attestation, error) {
	return ms.reader().GetAttestation(ctx, subject)
}

func (ms *MemoryStore) GetInvoice(ctx context.Context, id uint64) (*models.Invoice, error) {
	return ms.reader().GetInvoice(ctx, id)
}

func (ms *MemoryStore) InvoiceIDsByCreator(ctx context.Context, creator common.Address) ([]uint64, error) {
	return ms.reader().InvoiceIDsByCreator(ctx, creator)
}

func (ms *MemoryStore) InvoiceIDsByPayer(ctx context.Context, payer common.Address) ([]uint64, error) {
	return ms.reader().InvoiceIDsByPayer(ctx, payer)
}

func (ms *MemoryStore) LastInvoiceID(ctx context.Context) (uint64, error) {
	return ms.reader().LastInvoiceID(ctx)
}

func (ms *MemoryStore) IsVerifier(ctx context.Context, address common.Address) (bool, error) {
	return ms.reader().IsVerifier(ctx, address)
}

func (ms *MemoryStore) ListVerifiers(ctx context.Context) ([]models.Verifier, error) {
	return ms.reader().ListVerifiers(ctx)
}

func (ms *MemoryStore) Balance(ctx context.Context, address common.Address, accountType string) (*big.Int, error) {
	return ms.reader().Balance(ctx, address, accountType)
}

type memoryReader struct {
	s *memoryState
}

func (r memoryReader) GetAttestation(_ context.Context, subject common.Address) (*models.Attestation, error) {
	attestation, ok := r.s.attestations[subject]
	if !ok {
		return nil, ErrNotFound
	}
	return &attestation, nil
}

func (r memoryReader) GetInvoice(_ context.Context, id uint64) (*models.Invoice, error) {
	invoice, ok := r.s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &invoice, nil
}

func (r memoryReader) InvoiceIDsByCreator(_ context.Context, creator common.Address) ([]uint64, error) {
	return append([]uint64{}, r.s.createdBy[creator]...), nil
}

func (r memoryReader) InvoiceIDsByPayer(_ context.Context, payer common.Address) ([]uint64, error) {
	return append([]uint64{}, r.s.receivedBy[payer]...), nil
}

func (r memoryReader) LastInvoiceID(_ context.Context) (uint64, error) {
	return r.s.lastInvoiceID, nil
}

func (r memoryReader) IsVerifier(_ context.Context, address common.Address) (bool, error) {
	_, ok := r.s.verifiers[address]
	return ok, nil
}

func (r memoryReader) ListVerifiers(_ context.Context) ([]models.Verifier, error) {
	verifiers := make([]models.Verifier, 0, len(r.s.verifiers))
	for _, v := range r.s.verifiers {
		verifiers = append(verifiers, v)
	}
	slices.SortFunc(verifiers, func(a, b models.Verifier) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return verifiers, nil
}

func (r memoryReader) Balance(_ context.Context, address common.Address, accountType string) (*big.Int, error) {
	account, ok := r.s.accounts[accountKey{address, accountType}]
	if !ok {
		return new(big.Int), nil
	}
	if balance, ok := r.s.balances[account.ID]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

type memoryTx struct {
	memoryReader
	owned memoryTable
}

// own clones the tables about to be written unless this transaction already did.
func (tx *memoryTx) own(tables memoryTable) {
	missing := tables &^ tx.owned
	if missing&tableAttestations != 0 {
		tx.s.attestations = maps.Clone(tx.s.attestations)
	}
	if missing&tableInvoices != 0 {
		tx.s.invoices = maps.Clone(tx.s.invoices)
		tx.s.createdBy = maps.Clone(tx.s.createdBy)
		tx.s.receivedBy = maps.Clone(tx.s.receivedBy)
	}
	if missing&tableAccounts != 0 {
		tx.s.accounts = maps.Clone(tx.s.accounts)
	}
	if missing&tableBalances != 0 {
		tx.s.balances = maps.Clone(tx.s.balances)
	}
	if missing&tableVerifiers != 0 {
		tx.s.verifiers = maps.Clone(tx.s.verifiers)
	}
	tx.owned |= tables
}

func (tx *memoryTx) SaveAttestation(_ context.Context, attestation *models.Attestation) error {
	tx.own(tableAttestations)
	tx.s.attestations[attestation.Subject] = *attestation
	return nil
}

func (tx *memoryTx) InsertInvoice(_ context.Context, invoice *models.Invoice) error {
	tx.own(tableInvoices)
	tx.s.lastInvoiceID++
	invoice.ID = tx.s.lastInvoiceID
	tx.s.invoices[invoice.ID] = *invoice
	tx.s.createdBy[invoice.Creator] = append(tx.s.createdBy[invoice.Creator], invoice.ID)
	tx.s.receivedBy[invoice.Payer] = append(tx.s.receivedBy[invoice.Payer], invoice.ID)
	return nil
}

func (tx *memoryTx) UpdateInvoice(_ context.Context, invoice *models.Invoice) error {
	if _, ok := tx.s.invoices[invoice.ID]; !ok {
		return ErrNotFound
	}
	tx.own(tableInvoices)
	tx.s.invoices[invoice.ID] = *invoice
	return nil
}

func (tx *memoryTx) GetOrCreateAccount(_ context.Context, address common.Address, accountType string) (*models.Account, error) {
	key := accountKey{address, accountType}
	if account, ok := tx.s.accounts[key]; ok {
		return &account, nil
	}
	tx.own(tableAccounts)
	tx.s.lastAccountID++
	account := models.Account{ID: tx.s.lastAccountID, Address: address, Type: accountType}
	tx.s.accounts[key] = account
	return &account, nil
}

func (tx *memoryTx) InsertTransactionEntry(_ context.Context, entry *models.TransactionEntry) error {
	// same checks as the database constraints
	if entry.Amount.Sign() <= 0 {
		return errors.New("transaction entry amount must be positive")
	}
	if entry.CreditAccountID == entry.DebitAccountID {
		return errors.New("transaction entry must move funds between two accounts")
	}
	tx.own(tableBalances)
	entry.ID = int64(len(tx.s.entries) + 1)
	tx.s.entries = append(tx.s.entries, *entry)
	tx.s.balances[entry.CreditAccountID] = new(big.Int).Add(tx.balance(entry.CreditAccountID), entry.Amount.Big())
	tx.s.balances[entry.DebitAccountID] = new(big.Int).Sub(tx.balance(entry.DebitAccountID), entry.Amount.Big())
	return nil
}

func (tx *memoryTx) balance(accountID int64) *big.Int {
	if balance, ok := tx.s.balances[accountID]; ok {
		return balance
	}
	return new(big.Int)
}

func (tx *memoryTx) AddVerifier(_ context.Context, verifier *models.Verifier) (bool, error) {
	if _, ok := tx.s.verifiers[verifier.Address]; ok {
		return false, nil
	}
	tx.own(tableVerifiers)
	tx.s.verifiers[verifier.Address] = *verifier
	return true, nil
}

func (tx *memoryTx) RemoveVerifier(_ context.Context, address common.Address) (bool, error) {
	if _, ok := tx.s.verifiers[address]; !ok {
		return false, nil
	}
	tx.own(tableVerifiers)
	delete(tx.s.verifiers, address)
	return true, nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ StoreTx = (*memoryTx)(nil)
)
