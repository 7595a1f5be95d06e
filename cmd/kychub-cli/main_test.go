package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/getAlby/kychub.go/lib/commitment"
	"github.com/getAlby/kychub.go/lib/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"kychub-cli", "--log-level", "disabled"}, args...))
	require.NoError(t, err)
	return out.String()
}

func TestCommitIsDeterministicForASalt(t *testing.T) {
	salt := strings.TrimSpace(run(t, "salt"))
	_, err := commitment.ParseSalt(salt)
	require.NoError(t, err)

	args := []string{"commit", "--first-name", "Ada", "--last-name", "Lovelace", "--dob", "1815-12-10",
		"--country", "gb", "--document", "P1234567", "--salt", salt}
	var first, second map[string]string
	require.NoError(t, json.Unmarshal([]byte(run(t, args...)), &first))
	require.NoError(t, json.Unmarshal([]byte(run(t, args...)), &second))
	assert.Equal(t, first, second)
	assert.Equal(t, salt, first["salt"])

	c, err := commitment.Parse(first["commitment"])
	require.NoError(t, err)
	assert.Equal(t, c.BigInt().String(), first["decimal"])
}

func TestCommitRejectsUnknownCountry(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"kychub-cli", "--log-level", "disabled", "commit", "--first-name", "A", "--last-name", "B",
		"--dob", "2000-01-01", "--country", "XX", "--document", "1"})
	assert.ErrorContains(t, err, "unsupported country")
}

func TestFormatProof(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"pi_a": ["1", "2", "1"],
		"pi_b": [["3", "4"], ["5", "6"], ["1", "0"]],
		"pi_c": ["7", "8", "1"],
		"protocol": "groth16",
		"curve": "bn128"
	}`), 0o600))

	var proof []string
	require.NoError(t, json.Unmarshal([]byte(run(t, "format-proof", "--proof", path)), &proof))
	assert.Equal(t, []string{"1", "2", "4", "3", "6", "5", "7", "8"}, proof)
}

func TestToken(t *testing.T) {
	address := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	token := strings.TrimSpace(run(t, "token", "--address", address.Hex(), "--secret", "SECRET"))

	parsed, err := tokens.ParseToken([]byte("SECRET"), token)
	require.NoError(t, err)
	assert.Equal(t, address, parsed)
}
