package attestation

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hetu-project/attestor-subnet/errs"
	"github.com/hetu-project/attestor-subnet/scoring"
)

// clockSkew is the positive skew tolerance allowed on IssuedAt.
const clockSkew = 60 * time.Second

// ValidateRequestWire performs layer-1 "wire" validation of a Request:
// subject/type are well-formed (guaranteed by the Go type system here),
// Data parses under the codec for the declared type, and expiry is
// strictly in the future with a one-second grace window.
func ValidateRequestWire(r Request, now time.Time) error {
	if r.Expiry < NewExpiry(now)+1 {
		return errs.New(errs.ExpiredOrBackwards, "expiry")
	}
	switch r.Type {
	case TypePCS:
		if _, err := DecodePcsPayload(r.Data); err != nil {
			return errs.Wrap(errs.MalformedField, "data", err)
		}
	case TypePRS:
		if _, err := DecodePrsPayload(r.Data); err != nil {
			return errs.Wrap(errs.MalformedField, "data", err)
		}
	default:
		return errs.New(errs.UnsupportedType, "attestationType")
	}
	return nil
}

// ValidatePcsPayload performs layer-2 "typed" validation of a PcsPayload:
// range checks, tier/score consistency, and timestamp ordering.
func ValidatePcsPayload(p PcsPayload, outerSubject Subject, now time.Time) error {
	if p.Subject != outerSubject {
		return errs.New(errs.MalformedField, "subject")
	}
	if p.Score > 1000 {
		return errs.New(errs.RangeViolation, "score")
	}
	if scoring.Tier(p.Tier) != scoring.TierFromScore(p.Score) {
		return errs.New(errs.InconsistentTier, "tier")
	}
	return validateTimestamps(p.IssuedAt, p.Expiry, now)
}

// ValidatePrsPayload is the PRS counterpart of ValidatePcsPayload. poolId is
// the outer request's Subject: for PRS attestations the poolId must equal
// the outer Subject.
func ValidatePrsPayload(p PrsPayload, outerSubject Subject, now time.Time) error {
	if p.PoolID != outerSubject {
		return errs.New(errs.MalformedField, "poolId")
	}
	if p.Score > 100 {
		return errs.New(errs.RangeViolation, "score")
	}
	if scoring.Band(p.Band) != scoring.BandFromScore(p.Score) {
		return errs.New(errs.InconsistentTier, "band")
	}
	return validateTimestamps(p.IssuedAt, p.Expiry, now)
}

func validateTimestamps(issuedAt, expiry Expiry, now time.Time) error {
	if issuedAt.Time().After(now.Add(clockSkew)) {
		return errs.New(errs.ExpiredOrBackwards, "issuedAt")
	}
	if expiry <= issuedAt {
		return errs.New(errs.ExpiredOrBackwards, "expiry")
	}
	return nil
}

// ValidateSignedAttestation re-derives and checks everything a fully formed
// SignedAttestation must satisfy: wire validity, typed-payload validity, and
// (if expectedOperator is set) that the embedded operator field matches the
// local signer address for outgoing attestations.
func ValidateSignedAttestation(sa SignedAttestation, expectedOperator *common.Address, now time.Time) error {
	if err := ValidateRequestWire(sa.Request, now); err != nil {
		return err
	}
	switch sa.Request.Type {
	case TypePCS:
		p, err := DecodePcsPayload(sa.Request.Data)
		if err != nil {
			return errs.Wrap(errs.MalformedField, "data", err)
		}
		if err := ValidatePcsPayload(p, sa.Request.Subject, now); err != nil {
			return err
		}
		if expectedOperator != nil && p.Operator != *expectedOperator {
			return errs.New(errs.MalformedField, "operator")
		}
	case TypePRS:
		p, err := DecodePrsPayload(sa.Request.Data)
		if err != nil {
			return errs.Wrap(errs.MalformedField, "data", err)
		}
		if err := ValidatePrsPayload(p, sa.Request.Subject, now); err != nil {
			return err
		}
		if expectedOperator != nil && p.Operator != *expectedOperator {
			return errs.New(errs.MalformedField, "operator")
		}
	default:
		return errs.New(errs.UnsupportedType, "attestationType")
	}
	return nil
}

// BatchItemResult is one positional slot of a batch validation/issuance
// result, isolating a failure at one index from its siblings.
type BatchItemResult[T any] struct {
	Value T
	Err   error
}

// ValidateBatch validates each item independently: a failure at index i
// never affects index j != i, and the output preserves one-to-one
// positional correspondence with the input.
func ValidateBatch(reqs []Request, now time.Time) []BatchItemResult[Request] {
	out := make([]BatchItemResult[Request], len(reqs))
	for i, r := range reqs {
		if err := ValidateRequestWire(r, now); err != nil {
			out[i] = BatchItemResult[Request]{Err: err}
			continue
		}
		out[i] = BatchItemResult[Request]{Value: r}
	}
	return out
}
