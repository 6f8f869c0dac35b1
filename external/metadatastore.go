package external

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hetu-project/attestor-subnet/attestation"
)

// InMemoryMetadataStore is a deterministic, content-addressed fake of an
// off-chain blob store: it derives a URI from the keccak256 hash of the
// blob and keeps the blob in memory. It satisfies
// attestation.MetadataStore, which the assertion at the bottom of this file
// checks at compile time.
type InMemoryMetadataStore struct {
	blobs map[string][]byte
}

// NewInMemoryMetadataStore returns an empty store.
func NewInMemoryMetadataStore() *InMemoryMetadataStore {
	return &InMemoryMetadataStore{blobs: make(map[string][]byte)}
}

// Put stores blob and returns its content-addressed URI.
func (s *InMemoryMetadataStore) Put(_ context.Context, blob []byte) (string, error) {
	uri := fmt.Sprintf("ipfs://%x", crypto.Keccak256(blob))
	s.blobs[uri] = blob
	return uri, nil
}

// Get returns the blob previously stored under uri, if any.
func (s *InMemoryMetadataStore) Get(uri string) ([]byte, bool) {
	blob, ok := s.blobs[uri]
	return blob, ok
}

var _ attestation.MetadataStore = (*InMemoryMetadataStore)(nil)
