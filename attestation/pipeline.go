package attestation

import (
	"context"
	"time"

	"github.com/hetu-project/attestor-subnet/errs"
	"github.com/hetu-project/attestor-subnet/scoring"
	"github.com/hetu-project/attestor-subnet/signing"
)

// MetadataStore is a content-addressed blob store: given a blob, return an
// `ipfs://<cid>` URI, or the empty string if no store is configured. The
// Issuance Pipeline only consumes this URI; it never interprets it.
type MetadataStore interface {
	Put(ctx context.Context, blob []byte) (uri string, err error)
}

// Pipeline orchestrates the codec, score engine, validator, and signer into
// signed attestation issuance. It has no observable side effects beyond
// producing a signature and, optionally, a metadata upload.
type Pipeline struct {
	signer *signing.Signer
	store  MetadataStore // optional; nil means no metadata persistence
	now    func() time.Time
}

// NewPipeline builds a Pipeline around a signer. store may be nil.
func NewPipeline(signer *signing.Signer, store MetadataStore) *Pipeline {
	return &Pipeline{signer: signer, store: store, now: time.Now}
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

func (p *Pipeline) uploadMetadata(ctx context.Context, blob []byte) (string, error) {
	if p.store == nil {
		return "", nil
	}
	uri, err := p.store.Put(ctx, blob)
	if err != nil {
		return "", errs.Wrap(errs.Unexpected, "metadataStore", err)
	}
	return uri, nil
}

// SignPcs builds a PcsPayload from features, validates it, encodes it, wraps
// it in a Request with AttestationType=PCS, and signs it.
func (p *Pipeline) SignPcs(ctx context.Context, features scoring.PcsFeatures, subject Subject, expiry Expiry, policyVersion string) (SignedAttestation, error) {
	now := p.clock()
	breakdown := scoring.ScorePcs(features)

	payload := PcsPayload{
		Subject:       subject,
		Score:         breakdown.Composite,
		Tier:          string(breakdown.Tier),
		IssuedAt:      NewExpiry(now),
		Expiry:        expiry,
		PolicyVersion: policyVersion,
		Operator:      p.signer.Address(),
	}
	if err := ValidatePcsPayload(payload, subject, now); err != nil {
		return SignedAttestation{}, err
	}

	data, err := EncodePcsPayload(payload)
	if err != nil {
		return SignedAttestation{}, err
	}

	ipfsURI, err := p.uploadMetadata(ctx, data)
	if err != nil {
		return SignedAttestation{}, err
	}

	req := Request{Subject: subject, Type: TypePCS, Data: data, Expiry: expiry, IpfsURI: ipfsURI}
	return p.sign(req, now)
}

// SignPrs is the PRS counterpart of SignPcs.
func (p *Pipeline) SignPrs(ctx context.Context, metrics scoring.PrsMetrics, poolID Subject, expiry Expiry, policyVersion string) (SignedAttestation, error) {
	now := p.clock()
	breakdown := scoring.ScorePrs(metrics)

	payload := PrsPayload{
		PoolID:        poolID,
		Score:         breakdown.Composite,
		Band:          string(breakdown.Band),
		IssuedAt:      NewExpiry(now),
		Expiry:        expiry,
		PolicyVersion: policyVersion,
		Operator:      p.signer.Address(),
	}
	if err := ValidatePrsPayload(payload, poolID, now); err != nil {
		return SignedAttestation{}, err
	}

	data, err := EncodePrsPayload(payload)
	if err != nil {
		return SignedAttestation{}, err
	}

	ipfsURI, err := p.uploadMetadata(ctx, data)
	if err != nil {
		return SignedAttestation{}, err
	}

	req := Request{Subject: poolID, Type: TypePRS, Data: data, Expiry: expiry, IpfsURI: ipfsURI}
	return p.sign(req, now)
}

func (p *Pipeline) sign(req Request, now time.Time) (SignedAttestation, error) {
	if err := ValidateRequestWire(req, now); err != nil {
		return SignedAttestation{}, err
	}
	preimage, err := EncodeRequest(req)
	if err != nil {
		return SignedAttestation{}, err
	}
	sig, err := p.signer.Sign(preimage)
	if err != nil {
		return SignedAttestation{}, err
	}
	return SignedAttestation{Request: req, Signer: p.signer.Address(), Signature: sig}, nil
}

// PcsItem is one input to SignBatch for the PCS path.
type PcsItem struct {
	Features      scoring.PcsFeatures
	Subject       Subject
	Expiry        Expiry
	PolicyVersion string
}

// SignBatch signs N PCS items, isolating failures: one item's failure never
// aborts its siblings, and result order matches input order exactly.
func (p *Pipeline) SignBatch(ctx context.Context, items []PcsItem) []BatchItemResult[SignedAttestation] {
	out := make([]BatchItemResult[SignedAttestation], len(items))
	for i, item := range items {
		sa, err := p.SignPcs(ctx, item.Features, item.Subject, item.Expiry, item.PolicyVersion)
		if err != nil {
			out[i] = BatchItemResult[SignedAttestation]{Err: err}
			continue
		}
		out[i] = BatchItemResult[SignedAttestation]{Value: sa}
	}
	return out
}

// Verify recomputes the canonical encoding, checks the signature, and
// re-checks tier/band consistency.
func Verify(sa SignedAttestation, now time.Time) error {
	preimage, err := EncodeRequest(sa.Request)
	if err != nil {
		return err
	}
	if err := signing.Verify(preimage, sa.Signature, sa.Signer); err != nil {
		return err
	}
	return ValidateSignedAttestation(sa, nil, now)
}
