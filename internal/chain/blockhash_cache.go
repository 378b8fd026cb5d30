// Package chain holds the thin Solana RPC adapters shared by the executor and
// the fee collector.
package chain

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const blockhashTTL = 2 * time.Second

// BlockhashProvider is the slice of the RPC client the cache needs.
type BlockhashProvider interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

type CachedBlockhash struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
	UpdatedAt            time.Time
}

// BlockhashCache keeps the most recent blockhash for a short TTL so that
// back-to-back transactions in one session share a single RPC round trip.
type BlockhashCache struct {
	mu        sync.RWMutex
	current   *CachedBlockhash
	rpcClient BlockhashProvider
}

func NewBlockhashCache(rpcClient BlockhashProvider) *BlockhashCache {
	return &BlockhashCache{rpcClient: rpcClient}
}

// GetBlockhash returns a fresh blockhash and its last valid block height,
// consulting the cache first. A stale cached value is returned as a fallback
// when the RPC fetch fails.
func (c *BlockhashCache) GetBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	c.mu.RLock()
	cached := c.current
	c.mu.RUnlock()

	if cached != nil && time.Since(cached.UpdatedAt) < blockhashTTL {
		return cached.Blockhash, cached.LastValidBlockHeight, nil
	}

	res, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		if cached != nil {
			return cached.Blockhash, cached.LastValidBlockHeight, nil
		}
		return solana.Hash{}, 0, err
	}

	c.mu.Lock()
	c.current = &CachedBlockhash{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		Slot:                 res.Context.Slot,
		UpdatedAt:            time.Now(),
	}
	c.mu.Unlock()

	return res.Value.Blockhash, res.Value.LastValidBlockHeight, nil
}
