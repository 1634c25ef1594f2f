package inmem

import (
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core/ledger"
)

// blockItem orders blocks by height in the btree.
type blockItem ledger.Block

var _ btree.Item = blockItem{}

func (b blockItem) Less(than btree.Item) bool {
	return b.Height < than.(blockItem).Height
}

type LedgerRepository struct {
	mu sync.RWMutex
	bt *btree.BTree
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{bt: btree.New(8)}
}

func (repo *LedgerRepository) AppendBlock(_ context.Context, b ledger.Block) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.bt.Has(blockItem{Height: b.Height}) {
		return errors.WithStack(ledger.ErrHeightExists)
	}
	b.Payload = append([]byte(nil), b.Payload...)
	repo.bt.ReplaceOrInsert(blockItem(b))
	return nil
}

func (repo *LedgerRepository) GetHead(_ context.Context) (ledger.Block, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	max := repo.bt.Max()
	if max == nil {
		return ledger.Block{}, errors.WithStack(ledger.ErrEmpty)
	}
	return ledger.Block(max.(blockItem)), nil
}

func (repo *LedgerRepository) GetBlock(_ context.Context, height uint64) (ledger.Block, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	item := repo.bt.Get(blockItem{Height: height})
	if item == nil {
		return ledger.Block{}, errors.WithStack(ledger.ErrNotFound)
	}
	return ledger.Block(item.(blockItem)), nil
}

func (repo *LedgerRepository) QueryBlocks(_ context.Context, from, to uint64, limit int) ([]ledger.Block, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var blocks []ledger.Block
	repo.bt.AscendGreaterOrEqual(blockItem{Height: from}, func(item btree.Item) bool {
		b := item.(blockItem)
		if b.Height > to || (limit > 0 && len(blocks) >= limit) {
			return false
		}
		blocks = append(blocks, ledger.Block(b))
		return true
	})
	return blocks, nil
}

// Tamper overwrites a stored block as is; tests use it to corrupt the chain.
func (repo *LedgerRepository) Tamper(b ledger.Block) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.bt.ReplaceOrInsert(blockItem(b))
}
