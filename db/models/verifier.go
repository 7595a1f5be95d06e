package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Verifier holds the role allowed to verify and revoke attestations.
type Verifier struct {
	bun.BaseModel `bun:"table:verifiers"`

	Address   common.Address `json:"address" bun:",pk,type:bytea"`
	CreatedAt time.Time      `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
}
