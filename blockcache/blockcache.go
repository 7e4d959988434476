// Package blockcache avoids redundant block-metadata round trips when the
// evaluation pipeline replays several processes whose message logs cross
// the same block heights.
package blockcache

import (
	"context"
	"sync"

	"github.com/permaweb/cu/domain"
	"github.com/permaweb/cu/persistence"
)

// Cache remembers block metadata by height, backed by the persistence
// store's findBlocks/saveBlocks so the record survives a restart.
type Cache struct {
	Store persistence.Store

	m      sync.RWMutex
	blocks map[uint64]domain.Block
}

func (c *Cache) init() {
	if c.blocks == nil {
		c.blocks = map[uint64]domain.Block{}
	}
}

// Ensure records block's metadata the first time its height is seen and
// returns the canonical record for that height, which may belong to a
// different process's earlier call. Later calls for the same height are
// served from memory without touching the store.
func (c *Cache) Ensure(ctx context.Context, block domain.Block) (domain.Block, error) {
	c.m.Lock()
	c.init()

	if b, ok := c.blocks[block.Height]; ok {
		c.m.Unlock()
		return b, nil
	}
	c.m.Unlock()

	found, err := c.Store.FindBlocks(ctx, block.Height, block.Height)
	if err != nil {
		return domain.Block{}, err
	}

	if len(found) > 0 {
		c.m.Lock()
		c.blocks[block.Height] = found[0]
		c.m.Unlock()
		return found[0], nil
	}

	if err := c.Store.SaveBlocks(ctx, []domain.Block{block}); err != nil {
		return domain.Block{}, err
	}

	c.m.Lock()
	c.blocks[block.Height] = block
	c.m.Unlock()

	return block, nil
}
