package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/uptrace/bun"
)

type KYCLevel uint8

const (
	KYCLevelNone KYCLevel = iota
	KYCLevelBasic
	KYCLevelAdvanced
	KYCLevelFull

	// KYCLevelInvalid stands for a level that could not be parsed.
	KYCLevelInvalid KYCLevel = 255
)

var kycLevelNames = [...]string{"none", "basic", "advanced", "full"}

func (l KYCLevel) String() string {
	if int(l) < len(kycLevelNames) {
		return kycLevelNames[l]
	}
	return "unknown(" + strconv.Itoa(int(l)) + ")"
}

// IsAttestable reports whether a verifier may grant the level.
func (l KYCLevel) IsAttestable() bool {
	return l >= KYCLevelBasic && l <= KYCLevelFull
}

// ParseKYCLevel accepts a level name or its number.
func ParseKYCLevel(s string) (KYCLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kycLevelNames {
		if s == name {
			return KYCLevel(i), nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n >= uint64(len(kycLevelNames)) {
		return KYCLevelNone, fmt.Errorf("unknown kyc level %q", s)
	}
	return KYCLevel(n), nil
}

func KYCLevels() []KYCLevel {
	return []KYCLevel{KYCLevelNone, KYCLevelBasic, KYCLevelAdvanced, KYCLevelFull}
}

// Attestation : Attestation Model
type Attestation struct {
	bun.BaseModel `bun:"table:attestations"`

	Subject         common.Address        `json:"subject" bun:",pk,type:bytea"`
	Commitment      commitment.Commitment `json:"commitment" bun:",notnull,type:varchar(66)"`
	IsVerified      bool                  `json:"is_verified" bun:",notnull,default:false"`
	Level           KYCLevel              `json:"level" bun:",notnull,default:0"`
	ExternalDataRef string                `json:"external_data_ref" bun:",notnull,default:''"`
	VerifiedBy      *common.Address       `json:"verified_by,omitempty" bun:",type:bytea"`
	VerifiedAt      bun.NullTime          `json:"verified_at"`
	ExpiresAt       bun.NullTime          `json:"expires_at"`
	RevokedAt       bun.NullTime          `json:"revoked_at"`
	CreatedAt       time.Time             `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       bun.NullTime          `json:"updated_at"`
}

func (a *Attestation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		a.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// IsValidAt is true while the attestation is verified and now is before its expiry.
func (a *Attestation) IsValidAt(now time.Time) bool {
	return a.IsVerified && !a.ExpiresAt.IsZero() && now.Before(a.ExpiresAt.Time)
}

// LevelAt reports KYCLevelNone once the attestation is no longer valid.
func (a *Attestation) LevelAt(now time.Time) KYCLevel {
	if !a.IsValidAt(now) {
		return KYCLevelNone
	}
	return a.Level
}

var _ bun.BeforeAppendModelHook = (*Attestation)(nil)
