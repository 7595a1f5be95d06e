package fees

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDefaultFee(t *testing.T) {
	fee, payout, err := Split(big.NewInt(1_000_000), 50)
	assert.NoError(t, err)
	assert.Equal(t, "5000", fee.String())
	assert.Equal(t, "995000", payout.String())
}

func TestSplitRoundsFeeDown(t *testing.T) {
	// 199 * 50 / 10000 = 0.995
	fee, payout, err := Split(big.NewInt(199), 50)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), fee.Int64())
	assert.Equal(t, int64(199), payout.Int64())

	fee, payout, err = Split(big.NewInt(12345), 33)
	assert.NoError(t, err)
	assert.Equal(t, int64(40), fee.Int64())
	assert.Equal(t, int64(12305), payout.Int64())
}

func TestSplitBounds(t *testing.T) {
	fee, payout, err := Split(big.NewInt(1000), 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), fee.Int64())
	assert.Equal(t, int64(1000), payout.Int64())

	fee, payout, err = Split(big.NewInt(1000), BasisPointsDenominator)
	assert.NoError(t, err)
	assert.Equal(t, int64(1000), fee.Int64())
	assert.Equal(t, int64(0), payout.Int64())

	_, _, err = Split(big.NewInt(1000), BasisPointsDenominator+1)
	assert.ErrorIs(t, err, ErrInvalidFeeBps)

	_, _, err = Split(big.NewInt(-1), 50)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestSplitLargeAmountHasNoDrift(t *testing.T) {
	// 2^256 - 1
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	fee, payout, err := Split(max, 50)
	assert.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).Add(fee, payout).Cmp(max))

	expected := new(big.Int).Mul(max, big.NewInt(50))
	expected.Quo(expected, big.NewInt(10000))
	assert.Equal(t, 0, fee.Cmp(expected))
}
