// Package attestation implements the canonical encoding, structural and
// semantic validation, and signed issuance of PCS/PRS attestations. It is
// the single source of truth for the bytes that get signed: any deviation
// here breaks every downstream signature.
package attestation

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Subject is a 32-byte identifier: either the hash of a user identifier
// (PCS) or a pool key (PRS).
type Subject [32]byte

// AttestationType is the 32-byte tag selecting how Data is interpreted.
type AttestationType [32]byte

// Closed set of attestation types.
var (
	TypePCS = AttestationType(crypto.Keccak256Hash([]byte("PCS")))
	TypePRS = AttestationType(crypto.Keccak256Hash([]byte("PRS")))
)

func (t AttestationType) String() string {
	switch t {
	case TypePCS:
		return "PCS"
	case TypePRS:
		return "PRS"
	default:
		return "unknown"
	}
}

// Expiry is an absolute instant expressed in whole seconds since the Unix
// epoch, matching the uint64 it is ABI-encoded as.
type Expiry uint64

// NewExpiry truncates t to whole seconds since the epoch.
func NewExpiry(t time.Time) Expiry {
	return Expiry(t.Unix())
}

func (e Expiry) Time() time.Time {
	return time.Unix(int64(e), 0).UTC()
}

func (e Expiry) After(other Expiry) bool {
	return e > other
}

// Request is the tuple (Subject, AttestationType, Data, Expiry, IpfsURI)
// whose canonical encoding is the signing preimage.
type Request struct {
	Subject   Subject
	Type      AttestationType
	Data      []byte
	Expiry    Expiry
	IpfsURI   string // empty string denotes "absent"
}

// PcsPayload is the typed PCS inner data.
type PcsPayload struct {
	Subject       Subject
	Score         uint32
	Tier          string
	IssuedAt      Expiry
	Expiry        Expiry
	PolicyVersion string
	Operator      common.Address
}

// PrsPayload is the typed PRS inner data.
type PrsPayload struct {
	PoolID        Subject
	Score         uint32
	Band          string
	IssuedAt      Expiry
	Expiry        Expiry
	PolicyVersion string
	Operator      common.Address
}

// SignedAttestation is an immutable, signed Request.
type SignedAttestation struct {
	Request   Request
	Signer    common.Address
	Signature [65]byte
}
