package zkp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var ErrInvalidVerifyingKey = errors.New("invalid verifying key")

// VerifyingKey is a Groth16 verifying key over BN254.
type VerifyingKey struct {
	Alpha bn254.G1Affine
	Beta  bn254.G2Affine
	Gamma bn254.G2Affine
	Delta bn254.G2Affine
	// IC[0] is the constant term, IC[i+1] belongs to public input i.
	IC []bn254.G1Affine
}

// NPublic is the number of public inputs the key expects.
func (vk *VerifyingKey) NPublic() int {
	return len(vk.IC) - 1
}

type snarkjsVerifyingKey struct {
	Protocol string     `json:"protocol"`
	Curve    string     `json:"curve"`
	NPublic  int        `json:"nPublic"`
	Alpha1   []string   `json:"vk_alpha_1"`
	Beta2    [][]string `json:"vk_beta_2"`
	Gamma2   [][]string `json:"vk_gamma_2"`
	Delta2   [][]string `json:"vk_delta_2"`
	IC       [][]string `json:"IC"`
}

// LoadVerifyingKey reads a snarkjs verification_key.json.
func LoadVerifyingKey(path string) (*VerifyingKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verifying key %s: %w", path, err)
	}
	return ParseVerifyingKey(data)
}

func ParseVerifyingKey(data []byte) (*VerifyingKey, error) {
	raw := snarkjsVerifyingKey{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVerifyingKey, err)
	}
	if raw.Protocol != "" && raw.Protocol != "groth16" {
		return nil, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidVerifyingKey, raw.Protocol)
	}
	if raw.Curve != "" && raw.Curve != "bn128" && raw.Curve != "bn254" {
		return nil, fmt.Errorf("%w: unsupported curve %q", ErrInvalidVerifyingKey, raw.Curve)
	}
	if len(raw.IC) == 0 || (raw.NPublic != 0 && raw.NPublic != len(raw.IC)-1) {
		return nil, fmt.Errorf("%w: expected %d IC points, got %d", ErrInvalidVerifyingKey, raw.NPublic+1, len(raw.IC))
	}

	vk := &VerifyingKey{IC: make([]bn254.G1Affine, len(raw.IC))}
	var err error
	if vk.Alpha, err = jsonG1(raw.Alpha1); err != nil {
		return nil, fmt.Errorf("%w: vk_alpha_1: %v", ErrInvalidVerifyingKey, err)
	}
	if vk.Beta, err = jsonG2(raw.Beta2); err != nil {
		return nil, fmt.Errorf("%w: vk_beta_2: %v", ErrInvalidVerifyingKey, err)
	}
	if vk.Gamma, err = jsonG2(raw.Gamma2); err != nil {
		return nil, fmt.Errorf("%w: vk_gamma_2: %v", ErrInvalidVerifyingKey, err)
	}
	if vk.Delta, err = jsonG2(raw.Delta2); err != nil {
		return nil, fmt.Errorf("%w: vk_delta_2: %v", ErrInvalidVerifyingKey, err)
	}
	for i, p := range raw.IC {
		if vk.IC[i], err = jsonG1(p); err != nil {
			return nil, fmt.Errorf("%w: IC[%d]: %v", ErrInvalidVerifyingKey, i, err)
		}
	}
	return vk, nil
}

// Groth16Verifier checks proofs against a single verifying key.
type Groth16Verifier struct {
	vk *VerifyingKey
}

func NewGroth16Verifier(vk *VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{vk: vk}
}

// Verify evaluates e(-A, B) * e(alpha, beta) * e(vk_x, gamma) * e(C, delta) == 1.
// Anything that does not decode to valid curve points or field elements is a rejected proof.
func (v *Groth16Verifier) Verify(ctx context.Context, proof Proof, publicInputs []*big.Int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if len(publicInputs) != v.vk.NPublic() {
		return false, nil
	}

	a, ok := decodeG1(proof[0], proof[1])
	if !ok {
		return false, nil
	}
	b, ok := decodeG2(proof[3], proof[2], proof[5], proof[4])
	if !ok {
		return false, nil
	}
	c, ok := decodeG1(proof[6], proof[7])
	if !ok {
		return false, nil
	}

	vkX := v.vk.IC[0]
	for i, input := range publicInputs {
		if input == nil || input.Sign() < 0 || input.Cmp(fr.Modulus()) >= 0 {
			return false, nil
		}
		var term bn254.G1Affine
		term.ScalarMultiplication(&v.vk.IC[i+1], input)
		vkX.Add(&vkX, &term)
	}

	var negA bn254.G1Affine
	negA.Neg(&a)

	valid, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, v.vk.Alpha, vkX, c},
		[]bn254.G2Affine{b, v.vk.Beta, v.vk.Gamma, v.vk.Delta},
	)
	if err != nil {
		return false, nil
	}
	return valid, nil
}

func setFp(dst *fp.Element, v *big.Int) bool {
	if v == nil || v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return false
	}
	dst.SetBigInt(v)
	return true
}

func decodeG1(x, y *big.Int) (bn254.G1Affine, bool) {
	var p bn254.G1Affine
	if !setFp(&p.X, x) || !setFp(&p.Y, y) {
		return p, false
	}
	return p, p.IsOnCurve() && p.IsInSubGroup()
}

func decodeG2(x0, x1, y0, y1 *big.Int) (bn254.G2Affine, bool) {
	var p bn254.G2Affine
	if !setFp(&p.X.A0, x0) || !setFp(&p.X.A1, x1) || !setFp(&p.Y.A0, y0) || !setFp(&p.Y.A1, y1) {
		return p, false
	}
	return p, p.IsOnCurve() && p.IsInSubGroup()
}

func jsonG1(coords []string) (bn254.G1Affine, error) {
	if len(coords) < 2 || (len(coords) == 3 && coords[2] != "1") {
		return bn254.G1Affine{}, errors.New("expected affine G1 point")
	}
	ints, err := ParsePublicInputs(coords[:2])
	if err != nil {
		return bn254.G1Affine{}, err
	}
	p, ok := decodeG1(ints[0], ints[1])
	if !ok {
		return p, errors.New("point is not on the curve")
	}
	return p, nil
}

func jsonG2(coords [][]string) (bn254.G2Affine, error) {
	if len(coords) < 2 || len(coords[0]) != 2 || len(coords[1]) != 2 {
		return bn254.G2Affine{}, errors.New("expected affine G2 point")
	}
	if len(coords) == 3 && (len(coords[2]) != 2 || coords[2][0] != "1" || coords[2][1] != "0") {
		return bn254.G2Affine{}, errors.New("expected affine G2 point")
	}
	ints, err := ParsePublicInputs([]string{coords[0][0], coords[0][1], coords[1][0], coords[1][1]})
	if err != nil {
		return bn254.G2Affine{}, err
	}
	p, ok := decodeG2(ints[0], ints[1], ints[2], ints[3])
	if !ok {
		return p, errors.New("point is not on the curve")
	}
	return p, nil
}
