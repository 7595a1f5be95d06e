package zkp

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	lru "github.com/hashicorp/golang-lru"
)

// CachedVerifier remembers verification results of identical proof/input pairs.
// Collaborator errors are never cached.
type CachedVerifier struct {
	verifier ProofVerifier
	cache    *lru.Cache
}

func NewCachedVerifier(verifier ProofVerifier, size int) (*CachedVerifier, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedVerifier{
		verifier: verifier,
		cache:    cache,
	}, nil
}

func (cv *CachedVerifier) Verify(ctx context.Context, proof Proof, publicInputs []*big.Int) (bool, error) {
	key := cacheKey(proof, publicInputs)
	if v, ok := cv.cache.Get(key); ok {
		return v.(bool), nil
	}
	valid, err := cv.verifier.Verify(ctx, proof, publicInputs)
	if err != nil {
		return false, err
	}
	cv.cache.Add(key, valid)
	return valid, nil
}

func (cv *CachedVerifier) Len() int {
	return cv.cache.Len()
}

func cacheKey(proof Proof, publicInputs []*big.Int) [sha256.Size]byte {
	h := sha256.New()
	var length [8]byte
	write := func(v *big.Int) {
		var b []byte
		if v != nil {
			b = v.Bytes()
		}
		binary.BigEndian.PutUint64(length[:], uint64(len(b)))
		h.Write(length[:])
		h.Write(b)
	}
	for _, v := range proof {
		write(v)
	}
	binary.BigEndian.PutUint64(length[:], uint64(len(publicInputs)))
	h.Write(length[:])
	for _, v := range publicInputs {
		write(v)
	}
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}
