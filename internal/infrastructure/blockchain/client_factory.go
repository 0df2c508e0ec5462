package blockchain

import (
	"fmt"
	"sync"
	"time"
)

// ClientFactory hands out one ChainReader per network, dialing lazily
// and caching the result.
type ClientFactory struct {
	rpcURLs    map[string]string
	registries map[string]string
	timeout    time.Duration

	readers map[string]ChainReader
	mu      sync.RWMutex
}

// NewClientFactory creates a new client factory
func NewClientFactory(rpcURLs, registries map[string]string, timeout time.Duration) *ClientFactory {
	return &ClientFactory{
		rpcURLs:    rpcURLs,
		registries: registries,
		timeout:    timeout,
		readers:    make(map[string]ChainReader),
	}
}

// GetReader returns the ChainReader for a network, dialing on first use
func (f *ClientFactory) GetReader(network string) (ChainReader, error) {
	f.mu.RLock()
	reader, ok := f.readers[network]
	f.mu.RUnlock()
	if ok {
		return reader, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if reader, ok := f.readers[network]; ok {
		return reader, nil
	}

	rpcURL, ok := f.rpcURLs[network]
	if !ok || rpcURL == "" {
		return nil, fmt.Errorf("no RPC endpoint configured for network %q", network)
	}

	newReader, err := NewEVMChainReader(rpcURL, f.registries[network], f.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain reader for %s: %w", network, err)
	}

	f.readers[network] = newReader
	return newReader, nil
}

// RegisterReader injects/overrides the cached reader for a network.
// Useful for deterministic unit tests.
func (f *ClientFactory) RegisterReader(network string, reader ChainReader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readers[network] = reader
}
