package attestation

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetu-project/attestor-subnet/errs"
)

func validPcsPayload(now time.Time) (PcsPayload, Subject) {
	subj := Subject{42}
	return PcsPayload{
		Subject:       subj,
		Score:         871,
		Tier:          "Diamond",
		IssuedAt:      NewExpiry(now),
		Expiry:        NewExpiry(now.Add(time.Hour)),
		PolicyVersion: "v1",
		Operator:      common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}, subj
}

func TestValidatePcsPayloadHappy(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	require.NoError(t, ValidatePcsPayload(p, subj, now))
}

func TestValidatePcsPayloadInconsistentTier(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	p.Tier = "Bronze"
	err := ValidatePcsPayload(p, subj, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InconsistentTier))
}

func TestValidatePcsPayloadRangeViolation(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	p.Score = 5000
	err := ValidatePcsPayload(p, subj, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.RangeViolation))
}

func TestValidatePcsPayloadExpiredOrBackwards(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	p.Expiry = p.IssuedAt
	err := ValidatePcsPayload(p, subj, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ExpiredOrBackwards))
}

func TestValidatePcsPayloadSubjectMismatch(t *testing.T) {
	now := time.Now()
	p, _ := validPcsPayload(now)
	err := ValidatePcsPayload(p, Subject{1}, now)
	require.Error(t, err)
}

func TestValidatePcsPayloadClockSkewTolerated(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	p.IssuedAt = NewExpiry(now.Add(59 * time.Second))
	require.NoError(t, ValidatePcsPayload(p, subj, now))
}

func TestValidatePcsPayloadClockSkewRejected(t *testing.T) {
	now := time.Now()
	p, subj := validPcsPayload(now)
	p.IssuedAt = NewExpiry(now.Add(61 * time.Second))
	err := ValidatePcsPayload(p, subj, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ExpiredOrBackwards))
}

func TestValidateRequestWireGraceWindow(t *testing.T) {
	now := time.Now()
	req := Request{Subject: Subject{1}, Type: TypePCS, Data: mustEncodePcs(t, now), Expiry: NewExpiry(now.Add(time.Second))}
	require.NoError(t, ValidateRequestWire(req, now))
}

func TestValidateRequestWireRejectsPastExpiry(t *testing.T) {
	now := time.Now()
	req := Request{Subject: Subject{1}, Type: TypePCS, Data: mustEncodePcs(t, now), Expiry: NewExpiry(now.Add(-time.Second))}
	err := ValidateRequestWire(req, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ExpiredOrBackwards))
}

func TestValidateRequestWireUnsupportedType(t *testing.T) {
	now := time.Now()
	req := Request{Subject: Subject{1}, Type: AttestationType{0xFF}, Data: []byte{}, Expiry: NewExpiry(now.Add(time.Hour))}
	err := ValidateRequestWire(req, now)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.UnsupportedType))
}

func mustEncodePcs(t *testing.T, now time.Time) []byte {
	t.Helper()
	p, _ := validPcsPayload(now)
	data, err := EncodePcsPayload(p)
	require.NoError(t, err)
	return data
}

// TestValidateBatchIsolation checks that one bad item in a batch doesn't
// affect its siblings, and positional order is preserved.
func TestValidateBatchIsolation(t *testing.T) {
	now := time.Now()
	good := Request{Subject: Subject{1}, Type: TypePCS, Data: mustEncodePcs(t, now), Expiry: NewExpiry(now.Add(time.Hour))}
	bad := Request{Subject: Subject{2}, Type: TypePCS, Data: mustEncodePcs(t, now), Expiry: NewExpiry(now.Add(-time.Hour))}

	results := ValidateBatch([]Request{good, bad, good}, now)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, good, results[2].Value)
}
