//go:build integration

package db_test

import (
	"context"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/db"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/service"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/ziflex/lecho/v3"
)

var (
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	payer        = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	verifier     = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	feeCollector = common.HexToAddress("0x00000000000000000000000000000000000000fe")
)

type StoreTestSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	config    *service.Config
	store     *db.Store
}

func (s *StoreTestSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("kychub"),
		tcpostgres.WithUsername("kychub"),
		tcpostgres.WithPassword("kychub"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.config = &service.Config{
		DatabaseUri:         dsn,
		DatabaseMaxConns:    10,
		FeeBps:              50,
		FeeCollectorAddress: feeCollector,
		MaxPublicInputs:     16,
		Verifiers:           service.AddressList{verifier},
	}
	store, err := db.OpenStore(ctx, s.config)
	s.Require().NoError(err)
	s.store = store.(*db.Store)
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
	s.NoError(testcontainers.TerminateContainer(s.container))
}

func (s *StoreTestSuite) newService() *service.KychubService {
	svc := &service.KychubService{
		Config:        s.config,
		Store:         s.store,
		ProofVerifier: zkp.AcceptAll,
		Logger:        lecho.New(io.Discard, lecho.WithLevel(log.OFF)),
		EventPubSub:   service.NewPubsub(),
	}
	s.Require().NoError(svc.BootstrapVerifiers(context.Background()))
	return svc
}

func (s *StoreTestSuite) TestMigrationsAreIdempotent() {
	group, err := db.Migrate(context.Background(), s.store.DB)
	s.Require().NoError(err)
	s.True(group.IsZero())
}

func (s *StoreTestSuite) TestSettlement() {
	ctx := context.Background()
	svc := s.newService()

	invoice, err := svc.CreateInvoice(ctx, service.NewInvoice{
		Creator:     creator,
		Payer:       payer,
		Amount:      big.NewInt(1_000_000),
		Description: "integration",
		DueDate:     time.Now().Add(24 * time.Hour),
		KYCRequired: true,
	})
	s.Require().NoError(err)

	_, err = svc.PayInvoice(ctx, payer, invoice.ID, big.NewInt(1_000_000))
	s.ErrorIs(err, service.ErrKYCRequired)

	salt, err := commitment.NewSalt()
	s.Require().NoError(err)
	c := commitment.Commit(commitment.Attributes{
		FirstName:      "Grace",
		LastName:       "Hopper",
		CountryCode:    commitment.CountryCode("US"),
		DocumentNumber: "A1",
	}, salt)
	_, err = svc.SubmitKYC(ctx, payer, c, "vault://doc/1")
	s.Require().NoError(err)
	attestation, err := svc.VerifyKYC(ctx, verifier, service.VerifyKYCRequest{
		Subject:        payer,
		PublicInputs:   []*big.Int{c.BigInt()},
		Level:          models.KYCLevelAdvanced,
		ValidityPeriod: time.Hour,
	})
	s.Require().NoError(err)
	s.Equal(models.KYCLevelAdvanced, attestation.Level)

	stored, err := svc.GetKYCStatus(ctx, payer)
	s.Require().NoError(err)
	s.True(stored.Commitment.Equal(c.BigInt()))
	s.Equal("vault://doc/1", stored.ExternalDataRef)
	s.Require().NotNil(stored.VerifiedBy)
	s.Equal(verifier, *stored.VerifiedBy)

	before, err := svc.Balance(ctx, creator, kycommon.AccountTypeCurrent)
	s.Require().NoError(err)
	settlement, err := svc.PayInvoice(ctx, payer, invoice.ID, big.NewInt(1_000_000))
	s.Require().NoError(err)
	s.Equal("5000", settlement.Fee.String())

	after, err := svc.Balance(ctx, creator, kycommon.AccountTypeCurrent)
	s.Require().NoError(err)
	s.Equal(int64(995_000), new(big.Int).Sub(after, before).Int64())

	paid, err := svc.GetInvoice(ctx, invoice.ID)
	s.Require().NoError(err)
	s.Equal(models.InvoiceStatusPaid, paid.Status)
	s.Equal("1000000", paid.PaidAmount.String())

	ids, err := svc.GetUserCreatedInvoices(ctx, creator)
	s.Require().NoError(err)
	s.Contains(ids, invoice.ID)

	_, err = svc.GetInvoice(ctx, invoice.ID+1000)
	s.ErrorIs(err, service.ErrNotFound)
}

// two services share the database, like two instances behind a load balancer
func (s *StoreTestSuite) TestConcurrentInstances() {
	ctx := context.Background()
	instances := []*service.KychubService{s.newService(), s.newService()}

	var wg sync.WaitGroup
	created := make(chan uint64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(svc *service.KychubService) {
			defer wg.Done()
			invoice, err := svc.CreateInvoice(ctx, service.NewInvoice{
				Creator: creator, Payer: payer, Amount: big.NewInt(100), DueDate: time.Now().Add(time.Hour),
			})
			if assert.NoError(s.T(), err) {
				created <- invoice.ID
			}
		}(instances[i%2])
	}
	wg.Wait()
	close(created)

	seen := map[uint64]bool{}
	for id := range created {
		s.False(seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	s.Len(seen, 20)

	var target uint64
	for id := range seen {
		target = id
		break
	}
	results := make(chan error, 2)
	for _, svc := range instances {
		wg.Add(1)
		go func(svc *service.KychubService) {
			defer wg.Done()
			_, err := svc.PayInvoice(ctx, payer, target, big.NewInt(100))
			results <- err
		}(svc)
	}
	wg.Wait()
	close(results)
	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, service.ErrInvalidState)
		}
	}
	s.Equal(1, succeeded)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
