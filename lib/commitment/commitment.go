// Package commitment derives identity commitments from private KYC attributes.
//
// The hash (Poseidon2 in Merkle-Damgard mode over the BN254 scalar field) and the
// order in which attributes are absorbed are part of the protocol: a proof circuit
// that attests a commitment must absorb exactly the same elements in exactly the
// same order, otherwise valid identities will never verify.
package commitment

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// Protocol identifies the hash and field order used by Commit.
const Protocol = "poseidon2-md/bn254-fr/firstName,lastName,dateOfBirth,countryCode,documentNumber,salt"

// Size is the byte length of a commitment.
const Size = fr.Bytes

var ErrInvalidCommitment = errors.New("invalid commitment")

// Attributes are the private identity attributes bound by a commitment.
// They never leave the client in clear text.
type Attributes struct {
	FirstName      string
	LastName       string
	DateOfBirth    int64 // unix seconds
	CountryCode    uint64
	DocumentNumber string
}

// Commitment is a canonical big-endian BN254 scalar field element.
type Commitment [Size]byte

// Commit hashes the attributes and the blinding salt into a commitment.
func Commit(attrs Attributes, salt fr.Element) Commitment {
	inputs := attrs.Elements()
	inputs = append(inputs, salt)

	h := poseidon2.NewMerkleDamgardHasher()
	for i := range inputs {
		b := inputs[i].Bytes()
		// canonical encodings are always accepted by the compression function
		_, _ = h.Write(b[:])
	}

	var out fr.Element
	out.SetBytes(h.Sum(nil))
	return FromElement(out)
}

// Elements returns the attributes encoded as field elements in protocol order.
func (a Attributes) Elements() []fr.Element {
	elements := make([]fr.Element, 4, 6)
	elements[0] = PackString(a.FirstName)
	elements[1] = PackString(a.LastName)
	elements[2].SetInt64(a.DateOfBirth)
	elements[3].SetUint64(a.CountryCode)
	return append(elements, PackString(a.DocumentNumber))
}

// PackString interprets the UTF-8 bytes of s as a big-endian integer reduced modulo r.
func PackString(s string) fr.Element {
	var e fr.Element
	if s == "" {
		return e
	}
	e.SetBytes([]byte(s))
	return e
}

// NewSalt draws a uniformly random blinding factor.
func NewSalt() (fr.Element, error) {
	var salt fr.Element
	if _, err := salt.SetRandom(); err != nil {
		return salt, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// ParseSalt parses a decimal or 0x prefixed hex salt. Values must be below the field modulus.
func ParseSalt(s string) (fr.Element, error) {
	c, err := Parse(s)
	if err != nil {
		return fr.Element{}, err
	}
	return c.Element(), nil
}

func FromElement(e fr.Element) Commitment {
	return Commitment(e.Bytes())
}

// FromBigInt converts v into a commitment. v must be a canonical field element.
func FromBigInt(v *big.Int) (Commitment, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return Commitment{}, ErrInvalidCommitment
	}
	var c Commitment
	v.FillBytes(c[:])
	return c, nil
}

// Parse accepts the 0x prefixed hex form produced by Hex as well as the decimal
// form used for public signals.
func Parse(s string) (Commitment, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Commitment{}, ErrInvalidCommitment
	}
	v := new(big.Int)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw := s[2:]
		if len(raw) == 0 || len(raw) > 2*Size {
			return Commitment{}, ErrInvalidCommitment
		}
		if len(raw)%2 == 1 {
			raw = "0" + raw
		}
		b, err := hex.DecodeString(raw)
		if err != nil {
			return Commitment{}, ErrInvalidCommitment
		}
		v.SetBytes(b)
	} else if _, ok := v.SetString(s, 10); !ok {
		return Commitment{}, ErrInvalidCommitment
	}
	return FromBigInt(v)
}

func (c Commitment) Element() fr.Element {
	var e fr.Element
	e.SetBytes(c[:])
	return e
}

func (c Commitment) BigInt() *big.Int {
	return new(big.Int).SetBytes(c[:])
}

func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

// Equal reports whether v is the integer value of the commitment.
func (c Commitment) Equal(v *big.Int) bool {
	return v != nil && c.BigInt().Cmp(v) == 0
}

func (c Commitment) Hex() string {
	return "0x" + hex.EncodeToString(c[:])
}

func (c Commitment) String() string {
	return c.Hex()
}

func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Commitment) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the commitment in its hex form.
func (c Commitment) Value() (driver.Value, error) {
	return c.Hex(), nil
}

func (c *Commitment) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = Commitment{}
		return nil
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into commitment", src)
	}
}
