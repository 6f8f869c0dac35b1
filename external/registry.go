// Package external holds the byte-shape contracts this module hands off to
// collaborators it does not implement itself: an on-chain attestation
// registry and a content-addressed metadata store. Neither the registry
// contract nor the store's backing service lives in this repository; this
// package only builds the bytes they are expected to accept.
package external

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hetu-project/attestor-subnet/attestation"
)

var submitAttestationArgs abi.Arguments

func init() {
	names := []string{"bytes32", "bytes32", "bytes", "address", "bytes"}
	submitAttestationArgs = make(abi.Arguments, len(names))
	for i, n := range names {
		ty, err := abi.NewType(n, "", nil)
		if err != nil {
			panic(err)
		}
		submitAttestationArgs[i] = abi.Argument{Type: ty}
	}
}

// submitAttestationSelector is the first 4 bytes of
// keccak256("submitAttestation(bytes32,bytes32,bytes,address,bytes)"), the
// function selector an EVM registry contract would dispatch on.
var submitAttestationSelector = func() [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte("submitAttestation(bytes32,bytes32,bytes,address,bytes)"))[:4])
	return sel
}()

// RegistrySubmission is the argument tuple an on-chain attestation registry
// would need to accept a SignedAttestation: subject, attestation type, the
// request's opaque data, the signer address, and the 65-byte signature.
type RegistrySubmission struct {
	Subject         attestation.Subject
	AttestationType attestation.AttestationType
	Data            []byte
	Signer          common.Address
	Signature       [65]byte
}

// FromSignedAttestation builds a RegistrySubmission from a fully signed
// attestation.
func FromSignedAttestation(sa attestation.SignedAttestation) RegistrySubmission {
	return RegistrySubmission{
		Subject:         sa.Request.Subject,
		AttestationType: sa.Request.Type,
		Data:            sa.Request.Data,
		Signer:          sa.Signer,
		Signature:       sa.Signature,
	}
}

// Calldata ABI-encodes the submission and prepends the 4-byte
// submitAttestation function selector, producing the exact bytes an EVM
// transaction would carry in its data field. This package never sends that
// transaction; it only computes what would be sent.
func (s RegistrySubmission) Calldata() ([]byte, error) {
	packed, err := submitAttestationArgs.Pack(
		[32]byte(s.Subject),
		[32]byte(s.AttestationType),
		s.Data,
		s.Signer,
		s.Signature[:],
	)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 4+len(packed))
	out = append(out, submitAttestationSelector[:]...)
	out = append(out, packed...)
	return out, nil
}

// Registry is the minimal on-chain submission contract this module depends
// on but does not implement. SubmitAttestation is expected to send
// Calldata() to the registry contract and return its transaction hash.
type Registry interface {
	SubmitAttestation(ctx context.Context, submission RegistrySubmission) (txHash common.Hash, err error)
}
