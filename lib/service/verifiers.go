package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
)

func (svc *KychubService) AddVerifier(ctx context.Context, address common.Address) (added bool, err error) {
	if address == (common.Address{}) {
		return false, fmt.Errorf("%w: verifier address must not be zero", ErrInvalidInput)
	}
	err = svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		added, err = tx.AddVerifier(ctx, &models.Verifier{Address: address, CreatedAt: now})
		return nil, err
	})
	if err != nil {
		return false, err
	}
	if added {
		svc.Logger.Infof("Verifier %s added", address.Hex())
	}
	return added, nil
}

func (svc *KychubService) RemoveVerifier(ctx context.Context, address common.Address) (removed bool, err error) {
	err = svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		removed, err = tx.RemoveVerifier(ctx, address)
		return nil, err
	})
	if err != nil {
		return false, err
	}
	if !removed {
		return false, fmt.Errorf("%w: %s is not a verifier", ErrNotFound, address.Hex())
	}
	svc.Logger.Infof("Verifier %s removed", address.Hex())
	return true, nil
}

func (svc *KychubService) IsVerifier(ctx context.Context, address common.Address) (bool, error) {
	return svc.Store.IsVerifier(ctx, address)
}

func (svc *KychubService) ListVerifiers(ctx context.Context) ([]models.Verifier, error) {
	return svc.Store.ListVerifiers(ctx)
}

// BootstrapVerifiers grants the role to the configured addresses, existing verifiers are kept.
func (svc *KychubService) BootstrapVerifiers(ctx context.Context) error {
	for _, address := range svc.Config.Verifiers {
		if _, err := svc.AddVerifier(ctx, address); err != nil {
			return fmt.Errorf("adding verifier %s: %w", address.Hex(), err)
		}
	}
	return nil
}
