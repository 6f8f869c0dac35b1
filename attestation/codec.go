package attestation

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hetu-project/attestor-subnet/errs"
	"github.com/hetu-project/attestor-subnet/scoring"
)

func validTier(s string) bool {
	switch scoring.Tier(s) {
	case scoring.TierBronze, scoring.TierSilver, scoring.TierGold, scoring.TierPlatinum, scoring.TierDiamond:
		return true
	}
	return false
}

func validBand(s string) bool {
	switch scoring.Band(s) {
	case scoring.BandCalm, scoring.BandNormal, scoring.BandVolatile, scoring.BandTurbulent:
		return true
	}
	return false
}

// maxFieldSize bounds any single variable-length field: none may exceed
// 2^20 bytes.
const maxFieldSize = 1 << 20

var (
	tyBytes32 abi.Type
	tyBytes   abi.Type
	tyUint256 abi.Type
	tyUint32  abi.Type
	tyUint64  abi.Type
	tyString  abi.Type
	tyAddress abi.Type
)

func init() {
	var err error
	if tyBytes32, err = abi.NewType("bytes32", "", nil); err != nil {
		panic(err)
	}
	if tyBytes, err = abi.NewType("bytes", "", nil); err != nil {
		panic(err)
	}
	if tyUint256, err = abi.NewType("uint256", "", nil); err != nil {
		panic(err)
	}
	if tyUint32, err = abi.NewType("uint32", "", nil); err != nil {
		panic(err)
	}
	if tyUint64, err = abi.NewType("uint64", "", nil); err != nil {
		panic(err)
	}
	if tyString, err = abi.NewType("string", "", nil); err != nil {
		panic(err)
	}
	if tyAddress, err = abi.NewType("address", "", nil); err != nil {
		panic(err)
	}
}

var requestArgs = abi.Arguments{
	{Type: tyBytes32}, // subject
	{Type: tyBytes32}, // attestationType
	{Type: tyBytes},   // data
	{Type: tyUint256}, // expiry
	{Type: tyString},  // ipfsUri
}

var payloadArgs = abi.Arguments{
	{Type: tyBytes32}, // subject/poolId
	{Type: tyUint32},  // score
	{Type: tyString},  // tier/band
	{Type: tyUint64},  // issuedAt
	{Type: tyUint64},  // expiry
	{Type: tyString},  // policyVersion
	{Type: tyAddress}, // operator
}

func checkFieldSize(name string, n int) error {
	if n > maxFieldSize {
		return errs.New(errs.CodecOverflow, name)
	}
	return nil
}

// EncodeRequest produces the canonical ABI tuple
// (bytes32, bytes32, bytes, uint256, string) that forms the signing
// preimage: field order, types, and padding are fixed and must never
// drift between encode and decode.
func EncodeRequest(r Request) ([]byte, error) {
	if err := checkFieldSize("data", len(r.Data)); err != nil {
		return nil, err
	}
	if err := checkFieldSize("ipfsUri", len(r.IpfsURI)); err != nil {
		return nil, err
	}
	packed, err := requestArgs.Pack(
		[32]byte(r.Subject),
		[32]byte(r.Type),
		r.Data,
		new(big.Int).SetUint64(uint64(r.Expiry)),
		r.IpfsURI,
	)
	if err != nil {
		return nil, errs.Wrap(errs.CodecOverflow, "request", err)
	}
	return packed, nil
}

// DecodeRequest parses bytes produced by EncodeRequest back into a Request.
func DecodeRequest(b []byte) (Request, error) {
	vals, err := requestArgs.Unpack(b)
	if err != nil {
		return Request{}, errs.Wrap(errs.MalformedField, "request", err)
	}
	if len(vals) != 5 {
		return Request{}, errs.New(errs.MalformedField, "request")
	}
	subject, ok := vals[0].([32]byte)
	if !ok {
		return Request{}, errs.New(errs.MalformedField, "subject")
	}
	typ, ok := vals[1].([32]byte)
	if !ok {
		return Request{}, errs.New(errs.MalformedField, "attestationType")
	}
	data, ok := vals[2].([]byte)
	if !ok {
		return Request{}, errs.New(errs.MalformedField, "data")
	}
	expiry, ok := vals[3].(*big.Int)
	if !ok {
		return Request{}, errs.New(errs.MalformedField, "expiry")
	}
	uri, ok := vals[4].(string)
	if !ok {
		return Request{}, errs.New(errs.MalformedField, "ipfsUri")
	}
	return Request{
		Subject: Subject(subject),
		Type:    AttestationType(typ),
		Data:    data,
		Expiry:  Expiry(expiry.Uint64()),
		IpfsURI: uri,
	}, nil
}

// EncodePcsPayload ABI-encodes a PcsPayload as the 7-tuple
// (bytes32, uint32, string, uint64, uint64, string, address).
func EncodePcsPayload(p PcsPayload) ([]byte, error) {
	if err := checkFieldSize("tier", len(p.Tier)); err != nil {
		return nil, err
	}
	if err := checkFieldSize("policyVersion", len(p.PolicyVersion)); err != nil {
		return nil, err
	}
	if !validTier(p.Tier) {
		return nil, errs.New(errs.MalformedField, "tier")
	}
	return payloadArgs.Pack(
		[32]byte(p.Subject),
		p.Score,
		p.Tier,
		uint64(p.IssuedAt),
		uint64(p.Expiry),
		p.PolicyVersion,
		p.Operator,
	)
}

// DecodePcsPayload is the inverse of EncodePcsPayload.
func DecodePcsPayload(b []byte) (PcsPayload, error) {
	vals, err := payloadArgs.Unpack(b)
	if err != nil {
		return PcsPayload{}, errs.Wrap(errs.MalformedField, "pcsPayload", err)
	}
	subject, score, label, issuedAt, expiry, policy, operator, err := unpackPayloadTuple(vals)
	if err != nil {
		return PcsPayload{}, err
	}
	if !validTier(label) {
		return PcsPayload{}, errs.New(errs.MalformedField, "tier")
	}
	return PcsPayload{
		Subject:       Subject(subject),
		Score:         score,
		Tier:          label,
		IssuedAt:      Expiry(issuedAt),
		Expiry:        Expiry(expiry),
		PolicyVersion: policy,
		Operator:      operator,
	}, nil
}

// EncodePrsPayload ABI-encodes a PrsPayload using the same 7-tuple layout,
// with poolId in the subject slot and band in the label slot.
func EncodePrsPayload(p PrsPayload) ([]byte, error) {
	if err := checkFieldSize("band", len(p.Band)); err != nil {
		return nil, err
	}
	if err := checkFieldSize("policyVersion", len(p.PolicyVersion)); err != nil {
		return nil, err
	}
	if !validBand(p.Band) {
		return nil, errs.New(errs.MalformedField, "band")
	}
	return payloadArgs.Pack(
		[32]byte(p.PoolID),
		p.Score,
		p.Band,
		uint64(p.IssuedAt),
		uint64(p.Expiry),
		p.PolicyVersion,
		p.Operator,
	)
}

// DecodePrsPayload is the inverse of EncodePrsPayload.
func DecodePrsPayload(b []byte) (PrsPayload, error) {
	vals, err := payloadArgs.Unpack(b)
	if err != nil {
		return PrsPayload{}, errs.Wrap(errs.MalformedField, "prsPayload", err)
	}
	poolID, score, label, issuedAt, expiry, policy, operator, err := unpackPayloadTuple(vals)
	if err != nil {
		return PrsPayload{}, err
	}
	if !validBand(label) {
		return PrsPayload{}, errs.New(errs.MalformedField, "band")
	}
	return PrsPayload{
		PoolID:        Subject(poolID),
		Score:         score,
		Band:          label,
		IssuedAt:      Expiry(issuedAt),
		Expiry:        Expiry(expiry),
		PolicyVersion: policy,
		Operator:      operator,
	}, nil
}

func unpackPayloadTuple(vals []interface{}) (subject [32]byte, score uint32, label string, issuedAt, expiry uint64, policy string, operator common.Address, err error) {
	if len(vals) != 7 {
		err = errs.New(errs.MalformedField, "payload")
		return
	}
	var ok bool
	if subject, ok = vals[0].([32]byte); !ok {
		err = errs.New(errs.MalformedField, "subject")
		return
	}
	if score, ok = vals[1].(uint32); !ok {
		err = errs.New(errs.MalformedField, "score")
		return
	}
	if label, ok = vals[2].(string); !ok {
		err = errs.New(errs.MalformedField, "label")
		return
	}
	if issuedAt, ok = vals[3].(uint64); !ok {
		err = errs.New(errs.MalformedField, "issuedAt")
		return
	}
	if expiry, ok = vals[4].(uint64); !ok {
		err = errs.New(errs.MalformedField, "expiry")
		return
	}
	if policy, ok = vals[5].(string); !ok {
		err = errs.New(errs.MalformedField, "policyVersion")
		return
	}
	if operator, ok = vals[6].(common.Address); !ok {
		err = errs.New(errs.MalformedField, "operator")
		return
	}
	return
}
