package fees

import (
	"errors"
	"math/big"
)

// BasisPointsDenominator is the number of basis points in 100%.
const BasisPointsDenominator = 10000

var (
	ErrNegativeAmount = errors.New("fees: amount must not be negative")
	ErrInvalidFeeBps  = errors.New("fees: fee basis points must be between 0 and 10000")
)

var denominator = big.NewInt(BasisPointsDenominator)

// Split divides amount into the platform fee and the creator payout.
// fee = floor(amount * feeBps / 10000), payout = amount - fee.
func Split(amount *big.Int, feeBps uint32) (fee, payout *big.Int, err error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, nil, ErrNegativeAmount
	}
	if feeBps > BasisPointsDenominator {
		return nil, nil, ErrInvalidFeeBps
	}
	fee = new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(feeBps)))
	fee.Quo(fee, denominator)
	payout = new(big.Int).Sub(amount, fee)
	return fee, payout, nil
}
