package service

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"
)

var (
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	payer        = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	verifier     = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	feeCollector = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000666")
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, proofVerifier zkp.ProofVerifier) (*KychubService, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	svc := &KychubService{
		Config: &Config{
			FeeBps:              50,
			FeeCollectorAddress: feeCollector,
			MaxPublicInputs:     16,
			ProofMaxAge:         3600,
			ProofMaxClockSkew:   300,
			Verifiers:           AddressList{verifier},
		},
		Store:         NewMemoryStore(),
		ProofVerifier: proofVerifier,
		Logger:        lecho.New(io.Discard, lecho.WithLevel(log.OFF)),
		EventPubSub:   NewPubsub(),
		Clock:         clock.Now,
	}
	require.NoError(t, svc.BootstrapVerifiers(t.Context()))
	return svc, clock
}

func testCommitment(t *testing.T, documentNumber string) commitment.Commitment {
	t.Helper()
	salt, err := commitment.NewSalt()
	require.NoError(t, err)
	return commitment.Commit(commitment.Attributes{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		DateOfBirth:    -4_857_868_800,
		CountryCode:    commitment.CountryCode("GB"),
		DocumentNumber: documentNumber,
	}, salt)
}

func sampleProof() zkp.Proof {
	proof, _ := zkp.ParseProof([]string{"1", "2", "3", "4", "5", "6", "7", "8"})
	return proof
}

func attestationOf(t *testing.T, svc *KychubService, subject common.Address) *models.Attestation {
	t.Helper()
	attestation, err := svc.GetKYCStatus(t.Context(), subject)
	require.NoError(t, err)
	return attestation
}
