package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
)

func IsAccountType(accountType string) bool {
	switch accountType {
	case kycommon.AccountTypeIncoming, kycommon.AccountTypeCurrent, kycommon.AccountTypeFees:
		return true
	}
	return false
}

// Balance is credits minus debits of one of the address's accounts.
// Incoming accounts carry the funds paid in and go negative.
func (svc *KychubService) Balance(ctx context.Context, address common.Address, accountType string) (*big.Int, error) {
	if !IsAccountType(accountType) {
		return nil, fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, accountType)
	}
	return svc.Store.Balance(ctx, address, accountType)
}
