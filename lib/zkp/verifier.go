// Package zkp checks succinct proofs that an identity commitment opens to
// attributes satisfying the KYC circuit.
package zkp

import (
	"context"
	"math/big"
)

// ProofVerifier accepts or rejects a proof for a list of public inputs.
//
// An invalid proof is reported as (false, nil). The error is reserved for the
// verifier itself failing, in which case the caller must abort.
type ProofVerifier interface {
	Verify(ctx context.Context, proof Proof, publicInputs []*big.Int) (bool, error)
}

type staticVerifier bool

// AcceptAll and RejectAll are deterministic verifiers for tests and local development.
var (
	AcceptAll ProofVerifier = staticVerifier(true)
	RejectAll ProofVerifier = staticVerifier(false)
)

func (v staticVerifier) Verify(ctx context.Context, _ Proof, _ []*big.Int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(v), nil
}
