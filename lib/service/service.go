package service

import (
	"context"
	"sync"
	"time"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/ziflex/lecho/v3"
)

type KychubService struct {
	Config        *Config
	Store         Store
	ProofVerifier zkp.ProofVerifier
	Logger        *lecho.Logger
	EventPubSub   *Pubsub
	// Clock overrides time.Now, tests move it to cross due dates and expiries.
	Clock func() time.Time

	// mu serializes every mutation of the registry and the ledger
	mu sync.Mutex
}

// now has second precision, the resolution of every stored timestamp.
func (svc *KychubService) now() time.Time {
	now := time.Now()
	if svc.Clock != nil {
		now = svc.Clock()
	}
	return now.UTC().Truncate(time.Second)
}

// Now is the service's notion of the current time.
func (svc *KychubService) Now() time.Time {
	return svc.now()
}

// mutate runs fn as one serialized store transaction and publishes the events
// it produced once the transaction committed. Publishing happens before the
// lock is released so subscribers see events in commit order.
func (svc *KychubService) mutate(ctx context.Context, fn func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error)) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	now := svc.now()
	var events []models.Event
	err := svc.Store.RunInTx(ctx, func(ctx context.Context, tx StoreTx) error {
		var err error
		events, err = fn(ctx, tx, now)
		return err
	})
	if err != nil {
		return err
	}
	svc.publishEvents(events)
	return nil
}
