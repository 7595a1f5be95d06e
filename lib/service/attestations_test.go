package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyRequest(c commitment.Commitment, level models.KYCLevel, period time.Duration) VerifyKYCRequest {
	return VerifyKYCRequest{
		Subject:        payer,
		Proof:          sampleProof(),
		PublicInputs:   []*big.Int{c.BigInt()},
		Level:          level,
		ValidityPeriod: period,
	}
}

func TestUnknownSubjectIsUnverified(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)
	attestation := attestationOf(t, svc, stranger)
	assert.Equal(t, stranger, attestation.Subject)
	assert.True(t, attestation.Commitment.IsZero())
	assert.False(t, attestation.IsVerified)

	valid, err := svc.IsKYCValid(t.Context(), stranger)
	assert.NoError(t, err)
	assert.False(t, valid)
}

func TestSubmitKYC(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)

	_, err := svc.SubmitKYC(t.Context(), payer, commitment.Commitment{}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	c := testCommitment(t, "P1234567")
	attestation, err := svc.SubmitKYC(t.Context(), payer, c, "ipfs://bafy-encrypted-docs")
	require.NoError(t, err)
	assert.Equal(t, c, attestation.Commitment)
	assert.False(t, attestation.IsVerified)
	assert.Equal(t, models.KYCLevelNone, attestation.Level)

	stored := attestationOf(t, svc, payer)
	assert.Equal(t, c, stored.Commitment)
	assert.Equal(t, "ipfs://bafy-encrypted-docs", stored.ExternalDataRef)
}

func TestVerifyKYCValidityWindow(t *testing.T) {
	svc, clock := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	period := 30 * 24 * time.Hour
	verifiedAt := clock.Now()
	attestation, err := svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, period))
	require.NoError(t, err)
	assert.True(t, attestation.IsVerified)
	assert.Equal(t, verifiedAt, attestation.VerifiedAt.Time)
	assert.Equal(t, verifiedAt.Add(period), attestation.ExpiresAt.Time)
	require.NotNil(t, attestation.VerifiedBy)
	assert.Equal(t, verifier, *attestation.VerifiedBy)

	valid, err := svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.True(t, valid)
	level, err := svc.GetKYCLevel(t.Context(), payer)
	require.NoError(t, err)
	assert.Equal(t, models.KYCLevelBasic, level)

	clock.Advance(period - time.Second)
	valid, err = svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.True(t, valid)

	clock.Advance(time.Second)
	valid, err = svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.False(t, valid)
	level, err = svc.GetKYCLevel(t.Context(), payer)
	require.NoError(t, err)
	assert.Equal(t, models.KYCLevelNone, level)

	// the record itself is kept
	assert.True(t, attestationOf(t, svc, payer).IsVerified)
}

func TestVerifyKYCRecordsWholeSeconds(t *testing.T) {
	svc, clock := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	verifiedAt := clock.Now()
	clock.Advance(700 * time.Millisecond)
	attestation, err := svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, time.Minute))
	require.NoError(t, err)
	assert.Equal(t, verifiedAt, attestation.VerifiedAt.Time)
	assert.Equal(t, verifiedAt.Add(time.Minute), attestation.ExpiresAt.Time)

	// validity is measured from the recorded second
	clock.Advance(time.Minute - 800*time.Millisecond)
	valid, err := svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.True(t, valid)

	clock.Advance(100 * time.Millisecond)
	valid, err = svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestResubmitResetsVerification(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelFull, time.Hour))
	require.NoError(t, err)

	_, err = svc.SubmitKYC(t.Context(), payer, testCommitment(t, "P7654321"), "")
	require.NoError(t, err)

	valid, err := svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.False(t, valid)
	attestation := attestationOf(t, svc, payer)
	assert.Equal(t, models.KYCLevelNone, attestation.Level)
	assert.Nil(t, attestation.VerifiedBy)
	assert.True(t, attestation.ExpiresAt.IsZero())
}

func TestVerifyKYCRejectedProof(t *testing.T) {
	svc, _ := newTestService(t, zkp.RejectAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	cases := []VerifyKYCRequest{
		verifyRequest(c, models.KYCLevelBasic, time.Hour),
		verifyRequest(c, models.KYCLevelNone, time.Hour),
		verifyRequest(c, models.KYCLevel(9), 0),
		verifyRequest(c, models.KYCLevelFull, -time.Hour),
		verifyRequest(c, models.KYCLevelInvalid, MaxValidityPeriod+time.Hour),
	}
	for _, req := range cases {
		_, err := svc.VerifyKYC(t.Context(), verifier, req)
		assert.ErrorIs(t, err, ErrInvalidProof)
	}
	assert.False(t, attestationOf(t, svc, payer).IsVerified)
}

func TestVerifyKYCRequiresVerifierRole(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	_, err = svc.VerifyKYC(t.Context(), stranger, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	assert.ErrorIs(t, err, ErrUnauthorized)

	// subjects cannot attest themselves either
	_, err = svc.VerifyKYC(t.Context(), payer, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyKYCValidatesLevelAndPeriod(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelNone, time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevel(4), time.Hour))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, 0))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, MaxValidityPeriod+time.Second))
	assert.ErrorIs(t, err, ErrPeriodTooLong)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelInvalid, time.Hour))
	assert.ErrorIs(t, err, ErrInvalidLevel)

	attestation, err := svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, MaxValidityPeriod))
	require.NoError(t, err)
	assert.Equal(t, attestation.VerifiedAt.Time.Add(MaxValidityPeriod), attestation.ExpiresAt.Time)

	tooMany := verifyRequest(c, models.KYCLevelBasic, time.Hour)
	for len(tooMany.PublicInputs) <= svc.Config.MaxPublicInputs {
		tooMany.PublicInputs = append(tooMany.PublicInputs, big.NewInt(1))
	}
	_, err = svc.VerifyKYC(t.Context(), verifier, tooMany)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyKYCBindsStoredCommitment(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)

	// nothing submitted yet
	c := testCommitment(t, "P1234567")
	_, err := svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	assert.ErrorIs(t, err, ErrInvalidProof)

	_, err = svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	// a valid proof about someone else's identity
	other := testCommitment(t, "X0000001")
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(other, models.KYCLevelBasic, time.Hour))
	assert.ErrorIs(t, err, ErrInvalidProof)
	assert.ErrorIs(t, err, ErrCommitmentMismatch)

	empty := verifyRequest(c, models.KYCLevelBasic, time.Hour)
	empty.PublicInputs = nil
	_, err = svc.VerifyKYC(t.Context(), verifier, empty)
	assert.ErrorIs(t, err, ErrInvalidProof)

	assert.False(t, attestationOf(t, svc, payer).IsVerified)
}

func TestVerifyKYCProofTimestamp(t *testing.T) {
	svc, clock := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	withTimestamp := func(ts int64) VerifyKYCRequest {
		req := verifyRequest(c, models.KYCLevelAdvanced, time.Hour)
		req.PublicInputs = append(req.PublicInputs, big.NewInt(ts), big.NewInt(18))
		return req
	}
	now := clock.Now().Unix()

	_, err = svc.VerifyKYC(t.Context(), verifier, withTimestamp(now-svc.Config.ProofMaxAge-1))
	assert.ErrorIs(t, err, ErrStaleProof)
	_, err = svc.VerifyKYC(t.Context(), verifier, withTimestamp(now+svc.Config.ProofMaxClockSkew+1))
	assert.ErrorIs(t, err, ErrStaleProof)

	_, err = svc.VerifyKYC(t.Context(), verifier, withTimestamp(now-60))
	assert.NoError(t, err)

	svc.Config.ProofMaxAge = 0
	_, err = svc.VerifyKYC(t.Context(), verifier, withTimestamp(1))
	assert.NoError(t, err)
}

type failingVerifier struct{}

func (failingVerifier) Verify(ctx context.Context, _ zkp.Proof, _ []*big.Int) (bool, error) {
	return false, context.DeadlineExceeded
}

func TestVerifyKYCVerifierFailure(t *testing.T) {
	svc, _ := newTestService(t, failingVerifier{})
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrInvalidProof)
}

func TestRevokeKYC(t *testing.T) {
	svc, clock := newTestService(t, zkp.AcceptAll)
	c := testCommitment(t, "P1234567")
	_, err := svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)

	_, err = svc.RevokeKYC(t.Context(), verifier, payer)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	require.NoError(t, err)

	_, err = svc.RevokeKYC(t.Context(), stranger, payer)
	assert.ErrorIs(t, err, ErrUnauthorized)

	clock.Advance(time.Minute)
	attestation, err := svc.RevokeKYC(t.Context(), verifier, payer)
	require.NoError(t, err)
	assert.False(t, attestation.IsVerified)
	assert.Equal(t, clock.Now(), attestation.RevokedAt.Time)

	valid, err := svc.IsKYCValid(t.Context(), payer)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestKYCEvents(t *testing.T) {
	svc, _ := newTestService(t, zkp.AcceptAll)
	events := make(chan models.Event, 4)
	_, err := svc.EventPubSub.Subscribe("kyc", events)
	require.NoError(t, err)

	c := testCommitment(t, "P1234567")
	_, err = svc.SubmitKYC(t.Context(), payer, c, "")
	require.NoError(t, err)
	_, err = svc.VerifyKYC(t.Context(), verifier, verifyRequest(c, models.KYCLevelBasic, time.Hour))
	require.NoError(t, err)
	// failed operations publish nothing
	_, err = svc.RevokeKYC(t.Context(), stranger, payer)
	require.Error(t, err)

	submitted := <-events
	assert.Equal(t, models.EventKYCSubmitted, submitted.Type)
	require.NotNil(t, submitted.Subject)
	assert.Equal(t, payer, *submitted.Subject)
	verified := <-events
	assert.Equal(t, models.EventKYCVerified, verified.Type)
	assert.True(t, verified.Attestation.IsVerified)
	assert.Len(t, events, 0)
}
