package models

import "github.com/ethereum/go-ethereum/common"

// Account : Account Model
type Account struct {
	ID      int64          `bun:",pk,autoincrement"`
	Address common.Address `bun:",notnull,type:bytea,unique:address_type"`
	Type    string         `bun:",notnull,unique:address_type"`
}
