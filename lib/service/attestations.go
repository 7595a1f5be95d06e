package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	kycommon "github.com/getAlby/kychub.go/common"
	"github.com/getAlby/kychub.go/db/models"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/zkp"
	"github.com/uptrace/bun"
)

// MaxValidityPeriod bounds how long a single verification may stay valid.
const MaxValidityPeriod = 100 * 365 * 24 * time.Hour

// VerifyKYCRequest carries the proof a verifier submits for a subject.
type VerifyKYCRequest struct {
	Subject        common.Address
	Proof          zkp.Proof
	PublicInputs   []*big.Int
	Level          models.KYCLevel
	ValidityPeriod time.Duration
}

func loadAttestation(ctx context.Context, store StoreReader, subject common.Address) (*models.Attestation, error) {
	attestation, err := store.GetAttestation(ctx, subject)
	if errors.Is(err, ErrNotFound) {
		return &models.Attestation{Subject: subject}, nil
	}
	if err != nil {
		return nil, err
	}
	return attestation, nil
}

// SubmitKYC replaces the subject's commitment. Any previous verification is
// dropped, a new commitment has to be verified again.
func (svc *KychubService) SubmitKYC(ctx context.Context, subject common.Address, c commitment.Commitment, externalDataRef string) (*models.Attestation, error) {
	if c.IsZero() {
		return nil, ErrInvalidCommitment
	}

	var result *models.Attestation
	err := svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		attestation, err := loadAttestation(ctx, tx, subject)
		if err != nil {
			return nil, err
		}
		if attestation.CreatedAt.IsZero() {
			attestation.CreatedAt = now
		} else {
			attestation.UpdatedAt = bun.NullTime{Time: now}
		}
		attestation.Commitment = c
		attestation.ExternalDataRef = externalDataRef
		attestation.IsVerified = false
		attestation.Level = models.KYCLevelNone
		attestation.VerifiedBy = nil
		attestation.VerifiedAt = bun.NullTime{}
		attestation.ExpiresAt = bun.NullTime{}
		attestation.RevokedAt = bun.NullTime{}

		if err := tx.SaveAttestation(ctx, attestation); err != nil {
			return nil, err
		}
		result = attestation
		return []models.Event{newKYCEvent(models.EventKYCSubmitted, attestation, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("KYC commitment submitted for %s", subject.Hex())
	return result, nil
}

// VerifyKYC records a verifier's attestation for the subject's stored commitment.
func (svc *KychubService) VerifyKYC(ctx context.Context, caller common.Address, req VerifyKYCRequest) (attestation *models.Attestation, err error) {
	defer func() {
		kycVerifications.WithLabelValues(resultLabel(err)).Inc()
	}()

	isVerifier, err := svc.Store.IsVerifier(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !isVerifier {
		return nil, ErrNotVerifier
	}
	if len(req.PublicInputs) > svc.Config.MaxPublicInputs {
		return nil, fmt.Errorf("%w: at most %d are accepted", ErrInvalidPublicInputs, svc.Config.MaxPublicInputs)
	}

	// the proof only depends on the request, it is checked before taking the lock
	start := time.Now()
	valid, err := svc.ProofVerifier.Verify(ctx, req.Proof, req.PublicInputs)
	proofVerificationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("verifying proof: %w", err)
	}
	if !valid {
		return nil, ErrInvalidProof
	}

	if !req.Level.IsAttestable() {
		return nil, ErrInvalidLevel
	}
	if req.ValidityPeriod < time.Second {
		return nil, ErrInvalidPeriod
	}
	if req.ValidityPeriod > MaxValidityPeriod {
		return nil, ErrPeriodTooLong
	}

	err = svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		// the role may have been revoked while the proof was checked
		isVerifier, err := tx.IsVerifier(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !isVerifier {
			return nil, ErrNotVerifier
		}

		current, err := loadAttestation(ctx, tx, req.Subject)
		if err != nil {
			return nil, err
		}
		if current.Commitment.IsZero() || len(req.PublicInputs) == 0 ||
			!current.Commitment.Equal(req.PublicInputs[kycommon.PublicInputCommitment]) {
			return nil, ErrCommitmentMismatch
		}
		if err := svc.checkProofTimestamp(req.PublicInputs, now); err != nil {
			return nil, err
		}

		verifier := caller
		current.IsVerified = true
		current.Level = req.Level
		current.VerifiedBy = &verifier
		current.VerifiedAt = bun.NullTime{Time: now}
		current.ExpiresAt = bun.NullTime{Time: now.Add(req.ValidityPeriod)}
		current.RevokedAt = bun.NullTime{}
		current.UpdatedAt = bun.NullTime{Time: now}
		if err := tx.SaveAttestation(ctx, current); err != nil {
			return nil, err
		}
		attestation = current
		return []models.Event{newKYCEvent(models.EventKYCVerified, current, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("KYC of %s verified at level %s by %s until %s",
		req.Subject.Hex(), req.Level, caller.Hex(), attestation.ExpiresAt.Time.Format(time.RFC3339))
	return attestation, nil
}

// checkProofTimestamp bounds the age of proofs that carry the time they were generated at.
func (svc *KychubService) checkProofTimestamp(publicInputs []*big.Int, now time.Time) error {
	if svc.Config.ProofMaxAge <= 0 || len(publicInputs) != kycommon.PublicInputsWithTimestamp {
		return nil
	}
	ts := publicInputs[kycommon.PublicInputTimestamp]
	if !ts.IsInt64() {
		return ErrStaleProof
	}
	age := now.Unix() - ts.Int64()
	if age > svc.Config.ProofMaxAge || -age > svc.Config.ProofMaxClockSkew {
		return ErrStaleProof
	}
	return nil
}

// RevokeKYC withdraws a verification before it expires.
func (svc *KychubService) RevokeKYC(ctx context.Context, caller, subject common.Address) (*models.Attestation, error) {
	var result *models.Attestation
	err := svc.mutate(ctx, func(ctx context.Context, tx StoreTx, now time.Time) ([]models.Event, error) {
		isVerifier, err := tx.IsVerifier(ctx, caller)
		if err != nil {
			return nil, err
		}
		if !isVerifier {
			return nil, ErrNotVerifier
		}
		attestation, err := loadAttestation(ctx, tx, subject)
		if err != nil {
			return nil, err
		}
		if !attestation.IsVerified {
			return nil, fmt.Errorf("%w: attestation is not verified", ErrInvalidState)
		}
		attestation.IsVerified = false
		attestation.Level = models.KYCLevelNone
		attestation.RevokedAt = bun.NullTime{Time: now}
		attestation.UpdatedAt = bun.NullTime{Time: now}
		if err := tx.SaveAttestation(ctx, attestation); err != nil {
			return nil, err
		}
		result = attestation
		return []models.Event{newKYCEvent(models.EventKYCRevoked, attestation, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("KYC of %s revoked by %s", subject.Hex(), caller.Hex())
	return result, nil
}

// GetKYCStatus returns the stored attestation, unknown subjects read as unverified.
func (svc *KychubService) GetKYCStatus(ctx context.Context, subject common.Address) (*models.Attestation, error) {
	return loadAttestation(ctx, svc.Store, subject)
}

func (svc *KychubService) IsKYCValid(ctx context.Context, subject common.Address) (bool, error) {
	attestation, err := loadAttestation(ctx, svc.Store, subject)
	if err != nil {
		return false, err
	}
	return attestation.IsValidAt(svc.now()), nil
}

// GetKYCLevel reports KYCLevelNone for attestations that are not currently valid.
func (svc *KychubService) GetKYCLevel(ctx context.Context, subject common.Address) (models.KYCLevel, error) {
	attestation, err := loadAttestation(ctx, svc.Store, subject)
	if err != nil {
		return models.KYCLevelNone, err
	}
	return attestation.LevelAt(svc.now()), nil
}
