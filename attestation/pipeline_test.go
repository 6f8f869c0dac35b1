package attestation

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetu-project/attestor-subnet/scoring"
	"github.com/hetu-project/attestor-subnet/signing"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewPipeline(signing.NewSigner(key), nil)
}

func TestPipelineSignPcsAndVerify(t *testing.T) {
	p := newTestPipeline(t)
	subject := Subject{1, 2, 3}
	expiry := NewExpiry(time.Now().Add(time.Hour))

	sa, err := p.SignPcs(context.Background(), scoring.PcsFeatures{
		WalletAgeDays:    730,
		TransactionCount: 1000,
		SuccessRate:      0.95,
		LpContribution:   10_000,
	}, subject, expiry, "policy-v1")
	require.NoError(t, err)

	assert.Equal(t, TypePCS, sa.Request.Type)
	assert.Equal(t, subject, sa.Request.Subject)
	require.NoError(t, Verify(sa, time.Now()))

	decoded, err := DecodePcsPayload(sa.Request.Data)
	require.NoError(t, err)
	assert.Equal(t, string(scoring.TierDiamond), decoded.Tier)
}

func TestPipelineSignPrsAndVerify(t *testing.T) {
	p := newTestPipeline(t)
	poolID := Subject{9, 9}
	expiry := NewExpiry(time.Now().Add(time.Hour))

	sa, err := p.SignPrs(context.Background(), scoring.PrsMetrics{
		Volatility:       0.1,
		LiquidityDepth:   10_000_000,
		Concentration:    0.1,
		OracleDispersion: 0.02,
	}, poolID, expiry, "policy-v1")
	require.NoError(t, err)

	assert.Equal(t, TypePRS, sa.Request.Type)
	require.NoError(t, Verify(sa, time.Now()))

	decoded, err := DecodePrsPayload(sa.Request.Data)
	require.NoError(t, err)
	assert.Equal(t, "Calm", decoded.Band)
}

func TestPipelineVerifyRejectsTamperedSignature(t *testing.T) {
	p := newTestPipeline(t)
	sa, err := p.SignPcs(context.Background(), scoring.PcsFeatures{WalletAgeDays: 10}, Subject{1}, NewExpiry(time.Now().Add(time.Hour)), "v1")
	require.NoError(t, err)

	sa.Signature[0] ^= 0xFF
	require.Error(t, Verify(sa, time.Now()))
}

// TestPipelineSignBatchIsolation checks that one bad expiry doesn't prevent
// its siblings in the batch from issuing.
func TestPipelineSignBatchIsolation(t *testing.T) {
	p := newTestPipeline(t)
	future := NewExpiry(time.Now().Add(time.Hour))
	past := NewExpiry(time.Now().Add(-time.Hour))

	items := []PcsItem{
		{Features: scoring.PcsFeatures{WalletAgeDays: 100}, Subject: Subject{1}, Expiry: future, PolicyVersion: "v1"},
		{Features: scoring.PcsFeatures{WalletAgeDays: 100}, Subject: Subject{2}, Expiry: past, PolicyVersion: "v1"},
		{Features: scoring.PcsFeatures{WalletAgeDays: 100}, Subject: Subject{3}, Expiry: future, PolicyVersion: "v1"},
	}

	results := p.SignBatch(context.Background(), items)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, Subject{1}, results[0].Value.Request.Subject)
	assert.Equal(t, Subject{3}, results[2].Value.Request.Subject)
}

type fakeStore struct {
	uri string
	err error
}

func (f *fakeStore) Put(ctx context.Context, blob []byte) (string, error) {
	return f.uri, f.err
}

func TestPipelineUsesMetadataStoreWhenConfigured(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := NewPipeline(signing.NewSigner(key), &fakeStore{uri: "ipfs://deadbeef"})

	sa, err := p.SignPcs(context.Background(), scoring.PcsFeatures{WalletAgeDays: 10}, Subject{1}, NewExpiry(time.Now().Add(time.Hour)), "v1")
	require.NoError(t, err)
	assert.Equal(t, "ipfs://deadbeef", sa.Request.IpfsURI)
}
