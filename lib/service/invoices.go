package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/fees"
	"github.com/uptrace/bun"
)

type NewInvoice struct {
	Creator         common.Address
	Payer           common.Address
	Amount          *big.Int
	Description     string
	ExternalDataRef string
	DueDate         time.Time
	KYCRequired     bool
}

// Settlement is the outcome of a successful payment.
type Settlement struct {
	Invoice  *models.Invoice
	Payout   models.Amount
	Fee      models.Amount
	Refunded models.Amount
}

func (svc *KychubService) CreateInvoice(ctx context.Context, req NewInvoice) (*models.Invoice, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	amount, err := models.AmountFromBig(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	dueDate := req.DueDate.UTC().Truncate(time.Second)

	var result *models.Invoice
	err = svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		if !dueDate.After(now) {
			return nil, ErrInvalidDueDate
		}
		invoice := &models.Invoice{
			Creator:         req.Creator,
			Payer:           req.Payer,
			Amount:          amount,
			Description:     req.Description,
			ExternalDataRef: req.ExternalDataRef,
			DueDate:         dueDate,
			Status:          models.InvoiceStatusCreated,
			KYCRequired:     req.KYCRequired,
			CreatedAt:       now,
		}
		if err := tx.InsertInvoice(ctx, invoice); err != nil {
			return nil, err
		}
		result = invoice
		return []models.Event{newInvoiceEvent(models.EventInvoiceCreated, invoice, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	invoicesCreated.Inc()
	svc.Logger.Infof("Invoice %d created by %s for %s, amount %s", result.ID, result.Creator.Hex(), result.Payer.Hex(), result.Amount)
	return result, nil
}

func (svc *KychubService) SendInvoice(ctx context.Context, caller common.Address, id uint64) (*models.Invoice, error) {
	var result *models.Invoice
	err := svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		invoice, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		if invoice.Creator != caller {
			return nil, ErrOnlyCreatorCanSend
		}
		if invoice.Status != models.InvoiceStatusCreated {
			return nil, fmt.Errorf("%w: Invoice is %s", ErrInvalidState, invoice.Status)
		}
		invoice.Status = models.InvoiceStatusSent
		invoice.UpdatedAt = bun.NullTime{Time: now}
		if err := tx.UpdateInvoice(ctx, invoice); err != nil {
			return nil, err
		}
		result = invoice
		return []models.Event{newInvoiceEvent(models.EventInvoiceSent, invoice, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PayInvoice settles the invoice from the caller's funds. Any caller may pay,
// the KYC gate applies to the invoice's payer. Only the invoice amount is
// captured, an overpayment is reported back as refunded.
func (svc *KychubService) PayInvoice(ctx context.Context, caller common.Address, id uint64, paidAmount *big.Int) (settlement *Settlement, err error) {
	defer func() {
		invoicePayments.WithLabelValues(resultLabel(err)).Inc()
	}()

	paid, err := models.AmountFromBig(paidAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	err = svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		invoice, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		if !invoice.IsPayable() {
			return nil, fmt.Errorf("%w: Invoice is %s", ErrInvalidState, invoice.Status)
		}
		if paid.Cmp(invoice.Amount) < 0 {
			return nil, ErrInsufficientPayment
		}
		if invoice.KYCRequired {
			attestation, err := loadAttestation(ctx, tx, invoice.Payer)
			if err != nil {
				return nil, err
			}
			if !attestation.IsValidAt(now) {
				return nil, ErrKYCRequired
			}
		}

		fee, payout, err := fees.Split(invoice.Amount.Big(), svc.Config.FeeBps)
		if err != nil {
			return nil, err
		}
		s := &Settlement{
			Payout:   mustAmount(payout),
			Fee:      mustAmount(fee),
			Refunded: mustAmount(new(big.Int).Sub(paid.Big(), invoice.Amount.Big())),
		}

		source, err := tx.GetOrCreateAccount(ctx, caller, kycommon.AccountTypeIncoming)
		if err != nil {
			return nil, err
		}
		transfers := []struct {
			to        common.Address
			account   string
			amount    models.Amount
			entryType string
		}{
			{invoice.Creator, kycommon.AccountTypeCurrent, s.Payout, models.EntryTypePayout},
			{svc.Config.FeeCollectorAddress, kycommon.AccountTypeFees, s.Fee, models.EntryTypeFee},
		}
		for _, transfer := range transfers {
			if transfer.amount.IsZero() {
				continue
			}
			destination, err := tx.GetOrCreateAccount(ctx, transfer.to, transfer.account)
			if err != nil {
				return nil, err
			}
			entry := &models.TransactionEntry{
				InvoiceID:       invoice.ID,
				CreditAccountID: destination.ID,
				DebitAccountID:  source.ID,
				Amount:          transfer.amount,
				EntryType:       transfer.entryType,
				CreatedAt:       now,
			}
			if err := tx.InsertTransactionEntry(ctx, entry); err != nil {
				return nil, fmt.Errorf("recording %s of invoice %d: %w", transfer.entryType, invoice.ID, err)
			}
		}

		payer := caller
		invoice.Status = models.InvoiceStatusPaid
		invoice.PaidAt = bun.NullTime{Time: now}
		invoice.PaidBy = &payer
		invoice.PaidAmount = invoice.Amount
		invoice.Fee = s.Fee
		invoice.Refunded = s.Refunded
		invoice.UpdatedAt = bun.NullTime{Time: now}
		if err := tx.UpdateInvoice(ctx, invoice); err != nil {
			return nil, err
		}
		s.Invoice = invoice
		settlement = s
		return []models.Event{newInvoiceEvent(models.EventInvoicePaid, invoice, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Invoice %d paid by %s: payout %s, fee %s, refunded %s",
		id, caller.Hex(), settlement.Payout, settlement.Fee, settlement.Refunded)
	return settlement, nil
}

func (svc *KychubService) CancelInvoice(ctx context.Context, caller common.Address, id uint64) (*models.Invoice, error) {
	var result *models.Invoice
	err := svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		invoice, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		if invoice.Creator != caller {
			return nil, ErrOnlyCreatorCanCancel
		}
		if !invoice.IsPayable() {
			return nil, fmt.Errorf("%w: Invoice is %s", ErrInvalidState, invoice.Status)
		}
		invoice.Status = models.InvoiceStatusCancelled
		invoice.CancelledAt = bun.NullTime{Time: now}
		invoice.UpdatedAt = bun.NullTime{Time: now}
		if err := tx.UpdateInvoice(ctx, invoice); err != nil {
			return nil, err
		}
		result = invoice
		return []models.Event{newInvoiceEvent(models.EventInvoiceCancelled, invoice, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetInvoice reports open invoices past their due date as overdue.
func (svc *KychubService) GetInvoice(ctx context.Context, id uint64) (*models.Invoice, error) {
	invoice, err := svc.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Status = invoice.StatusAt(svc.now())
	return invoice, nil
}

func (svc *KychubService) GetUserCreatedInvoices(ctx context.Context, user common.Address) ([]uint64, error) {
	return svc.Store.InvoiceIDsByCreator(ctx, user)
}

func (svc *KychubService) GetUserReceivedInvoices(ctx context.Context, user common.Address) ([]uint64, error) {
	return svc.Store.InvoiceIDsByPayer(ctx, user)
}

// InvoiceCounter is the id of the most recently created invoice.
func (svc *KychubService) InvoiceCounter(ctx context.Context) (uint64, error) {
	return svc.Store.LastInvoiceID(ctx)
}

// mustAmount converts results of fees.Split, which stay within the invoice amount.
func mustAmount(v *big.Int) models.Amount {
	amount, err := models.AmountFromBig(v)
	if err != nil {
		panic(err)
	}
	return amount
}
