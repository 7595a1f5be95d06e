package zkp

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ProofElements is the number of integers in a serialized Groth16 proof.
const ProofElements = 8

var (
	ErrMalformedProof        = errors.New("malformed proof")
	ErrMalformedPublicInputs = errors.New("malformed public inputs")
)

// Proof is a Groth16 proof in calldata order:
// [a0, a1, b01, b00, b11, b10, c0, c1].
// Both coordinates of B carry their imaginary part first.
type Proof [ProofElements]*big.Int

// ParseProof parses exactly eight non-negative decimal or 0x prefixed hex integers.
// Range checks against the curve happen during verification, not here.
func ParseProof(elements []string) (Proof, error) {
	var proof Proof
	if len(elements) != ProofElements {
		return proof, fmt.Errorf("%w: expected %d elements, got %d", ErrMalformedProof, ProofElements, len(elements))
	}
	for i, s := range elements {
		v, err := parseInteger(s)
		if err != nil {
			return Proof{}, fmt.Errorf("%w: element %d: %v", ErrMalformedProof, i, err)
		}
		proof[i] = v
	}
	return proof, nil
}

// ParsePublicInputs parses public signals as produced by snarkjs.
func ParsePublicInputs(signals []string) ([]*big.Int, error) {
	inputs := make([]*big.Int, len(signals))
	for i, s := range signals {
		v, err := parseInteger(s)
		if err != nil {
			return nil, fmt.Errorf("%w: input %d: %v", ErrMalformedPublicInputs, i, err)
		}
		inputs[i] = v
	}
	return inputs, nil
}

func (p Proof) Strings() []string {
	out := make([]string, ProofElements)
	for i, v := range p {
		if v == nil {
			out[i] = "0"
			continue
		}
		out[i] = v.String()
	}
	return out
}

// SnarkJSProof is the proof.json layout written by snarkjs.
type SnarkJSProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
}

// Calldata reorders a snarkjs proof into the calldata layout accepted by ParseProof.
func (p SnarkJSProof) Calldata() (Proof, error) {
	if len(p.PiA) < 2 || len(p.PiB) < 2 || len(p.PiB[0]) < 2 || len(p.PiB[1]) < 2 || len(p.PiC) < 2 {
		return Proof{}, fmt.Errorf("%w: incomplete snarkjs proof", ErrMalformedProof)
	}
	return ParseProof([]string{
		p.PiA[0], p.PiA[1],
		p.PiB[0][1], p.PiB[0][0],
		p.PiB[1][1], p.PiB[1][0],
		p.PiC[0], p.PiC[1],
	})
}

func parseInteger(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative integer: %q", s)
	}
	return v, nil
}
