package service

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestAddressListDecode(t *testing.T) {
	var list AddressList
	err := list.Decode("0x00000000000000000000000000000000000000a3, 0x0000000000000000000000000000000000000666,")
	assert.NoError(t, err)
	assert.Equal(t, AddressList{verifier, stranger}, list)

	err = list.Decode("")
	assert.NoError(t, err)
	assert.Empty(t, list)

	err = list.Decode("0x00000000000000000000000000000000000000a3,alice")
	assert.ErrorContains(t, err, `"alice"`)

	var fee common.Address
	assert.NoError(t, fee.UnmarshalText([]byte("0x00000000000000000000000000000000000000fe")))
	assert.Equal(t, feeCollector, fee)
}
