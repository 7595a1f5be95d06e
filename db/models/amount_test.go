package models

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountBounds(t *testing.T) {
	_, err := AmountFromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	max, err := AmountFromBig(math.MaxBig256)
	require.NoError(t, err)
	assert.Equal(t, math.MaxBig256.String(), max.String())

	_, err = AmountFromBig(new(big.Int).Add(math.MaxBig256, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = ParseAmount("1e6")
	assert.Error(t, err)
}

func TestAmountIsImmutable(t *testing.T) {
	v := big.NewInt(10)
	a, err := AmountFromBig(v)
	require.NoError(t, err)
	v.SetInt64(20)
	assert.Equal(t, "10", a.String())

	a.Big().SetInt64(30)
	assert.Equal(t, "10", a.String())
}

func TestAmountZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.Equal(t, "0", a.String())
	assert.Equal(t, 0, a.Cmp(NewAmount(0)))
	assert.Equal(t, -1, a.Cmp(NewAmount(1)))
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(NewAmount(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, `"1000000"`, string(data))

	var fromString, fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte(`"1000000"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`1000000`), &fromNumber))
	assert.Equal(t, 0, fromString.Cmp(fromNumber))

	var bad Amount
	assert.Error(t, json.Unmarshal([]byte(`"-5"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
}

func TestAmountScan(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("995000"))
	assert.Equal(t, "995000", a.String())
	require.NoError(t, a.Scan([]byte("5000")))
	assert.Equal(t, "5000", a.String())
	require.NoError(t, a.Scan(int64(7)))
	assert.Equal(t, "7", a.String())
	require.NoError(t, a.Scan(nil))
	assert.True(t, a.IsZero())
	assert.Error(t, a.Scan(1.5))

	v, err := NewAmount(42).Value()
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}
