package external

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetu-project/attestor-subnet/attestation"
	"github.com/hetu-project/attestor-subnet/scoring"
	"github.com/hetu-project/attestor-subnet/signing"
)

func signedAttestationForTest(t *testing.T) attestation.SignedAttestation {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := attestation.NewPipeline(signing.NewSigner(key), nil)
	sa, err := p.SignPcs(context.Background(), scoring.PcsFeatures{WalletAgeDays: 100}, attestation.Subject{1}, attestation.NewExpiry(time.Now().Add(time.Hour)), "v1")
	require.NoError(t, err)
	return sa
}

func TestCalldataHasFourByteSelectorPrefix(t *testing.T) {
	sa := signedAttestationForTest(t)
	sub := FromSignedAttestation(sa)

	data, err := sub.Calldata()
	require.NoError(t, err)
	require.True(t, len(data) > 4)
	assert.Equal(t, submitAttestationSelector[:], data[:4])
}

func TestCalldataDeterministic(t *testing.T) {
	sa := signedAttestationForTest(t)
	sub := FromSignedAttestation(sa)

	a, err := sub.Calldata()
	require.NoError(t, err)
	b, err := sub.Calldata()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestInMemoryMetadataStoreRoundTrip(t *testing.T) {
	store := NewInMemoryMetadataStore()
	blob := []byte("some opaque attestation bytes")

	uri, err := store.Put(context.Background(), blob)
	require.NoError(t, err)
	assert.Contains(t, uri, "ipfs://")

	got, ok := store.Get(uri)
	require.True(t, ok)
	assert.Equal(t, blob, got)
}

func TestInMemoryMetadataStoreIsContentAddressed(t *testing.T) {
	store := NewInMemoryMetadataStore()
	blob := []byte("same bytes")

	uriA, err := store.Put(context.Background(), blob)
	require.NoError(t, err)
	uriB, err := store.Put(context.Background(), blob)
	require.NoError(t, err)
	assert.Equal(t, uriA, uriB)
}
