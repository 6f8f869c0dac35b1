// Package signing owns the recoverable-ECDSA half of the protocol: it turns
// a preimage into a 65-byte signature and turns a signature back into the
// address that produced it, using the Ethereum "prefixed personal message"
// convention over crypto.Sign/crypto.SigToPub.
package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hetu-project/attestor-subnet/errs"
)

const personalPrefix = "\x19Ethereum Signed Message:\n32"

// PrefixedHash computes keccak256("\x19Ethereum Signed Message:\n32" ||
// keccak256(preimage)), the hash that is actually signed.
func PrefixedHash(preimage []byte) common.Hash {
	inner := crypto.Keccak256Hash(preimage)
	return crypto.Keccak256Hash([]byte(personalPrefix), inner.Bytes())
}

// Signer holds a single ECDSA private key in memory and never exposes it.
// Every signing operation in this module funnels through one Signer owned
// by a single caller.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps an already-loaded private key. Key loading itself (from a
// keystore, an HSM, an env var) is outside this package's scope.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the signer's public Ethereum-style address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign produces a 65-byte recoverable signature (r, s, v with v in {27,28})
// over the prefixed-message hash of preimage.
func (s *Signer) Sign(preimage []byte) ([65]byte, error) {
	var out [65]byte
	digest := PrefixedHash(preimage)
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return out, errs.Wrap(errs.Unexpected, "signature", err)
	}
	if len(sig) != 65 {
		return out, errs.New(errs.Unexpected, "signature")
	}
	sig[64] += 27
	copy(out[:], sig)
	return out, nil
}

// Recover recovers the signer address from a 65-byte recoverable signature
// over preimage. v is expected in {27,28} as produced by Sign; it is
// normalized back to {0,1} before recovery.
func Recover(preimage []byte, sig [65]byte) (common.Address, error) {
	digest := PrefixedHash(preimage)
	raw := sig
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), raw[:])
	if err != nil {
		return common.Address{}, errs.Wrap(errs.BadSignature, "signature", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether sig over preimage was produced by expected,
// comparing addresses case-insensitively as common.Address equality already
// does.
func Verify(preimage []byte, sig [65]byte, expected common.Address) error {
	got, err := Recover(preimage, sig)
	if err != nil {
		return err
	}
	if got != expected {
		return errs.New(errs.BadSignature, fmt.Sprintf("signer mismatch: got %s want %s", got.Hex(), expected.Hex()))
	}
	return nil
}
