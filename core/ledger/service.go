package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
)

const verifyPageSize = 500

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("block not found")
	ErrEmpty        = core.NewNotFoundError("ledger is empty")
	ErrHeightExists = errors.New("block height already exists")
)

type (
	Repository interface {
		// AppendBlock stores b; it fails with ErrHeightExists if the height is taken.
		AppendBlock(ctx context.Context, b Block) error
		// GetHead returns the highest block or ErrEmpty.
		GetHead(ctx context.Context) (Block, error)
		GetBlock(ctx context.Context, height uint64) (Block, error)
		// QueryBlocks returns up to `limit` blocks with from <= height <= to, ascending.
		QueryBlocks(ctx context.Context, from, to uint64, limit int) ([]Block, error)
	}

	// Recorder is implemented by Service; domain services record their state changes through it.
	Recorder interface {
		Record(ctx context.Context, ev Event) (Block, error)
	}

	Service struct {
		repo   Repository
		hub    *Hub
		logger core.Logger
		mu     sync.Mutex
	}
)

var _ Recorder = (*Service)(nil)

func NewService(repo Repository, hub *Hub, logger core.Logger) *Service {
	if hub == nil {
		hub = NewHub(0)
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{repo: repo, hub: hub, logger: logger}
}

func (svc *Service) Hub() *Hub {
	return svc.hub
}

// Record appends ev as the next block. Appends are serialized so heights and links stay contiguous.
func (svc *Service) Record(ctx context.Context, ev Event) (Block, error) {
	if ev.Type == "" {
		return Block{}, errors.New("event type is required")
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Block{}, errors.Wrap(err, "marshalling event payload")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	prev, err := svc.repo.GetHead(ctx)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrEmpty:
		prev = Block{Hash: GenesisHash}
	default:
		return Block{}, errors.Wrap(err, "getting ledger head")
	}

	b := Block{
		Height:   prev.Height + 1,
		Time:     core.NowFunc().UTC().Truncate(time.Microsecond),
		Type:     ev.Type,
		Creator:  ev.Creator,
		Ref:      ev.Ref,
		Payload:  payload,
		PrevHash: prev.Hash,
	}
	b.Hash = b.ComputeHash()
	if err = svc.repo.AppendBlock(ctx, b); err != nil {
		return Block{}, errors.Wrapf(err, "appending block %d", b.Height)
	}

	svc.hub.Broadcast(b)
	return b, nil
}

func (svc *Service) Status(ctx context.Context) (Status, error) {
	head, err := svc.repo.GetHead(ctx)
	if err != nil {
		if errors.Cause(err) == ErrEmpty {
			return Status{Hash: GenesisHash, Empty: true, Subscribers: svc.hub.Len()}, nil
		}
		return Status{}, errors.Wrap(err, "getting ledger head")
	}
	return Status{Height: head.Height, Hash: head.Hash, Time: head.Time, Subscribers: svc.hub.Len()}, nil
}

func (svc *Service) GetBlock(ctx context.Context, height uint64) (Block, error) {
	return svc.repo.GetBlock(ctx, height)
}

// Blocks lists blocks from `from` upwards; limit is capped to verifyPageSize.
func (svc *Service) Blocks(ctx context.Context, from uint64, limit int) ([]Block, error) {
	if limit <= 0 || limit > verifyPageSize {
		limit = verifyPageSize
	}
	if from == 0 {
		from = 1
	}
	return svc.repo.QueryBlocks(ctx, from, ^uint64(0), limit)
}

// Verify recomputes every hash and link from genesis to head and stops at the first broken block.
func (svc *Service) Verify(ctx context.Context) (VerifyResult, error) {
	head, err := svc.repo.GetHead(ctx)
	if err != nil {
		if errors.Cause(err) == ErrEmpty {
			return VerifyResult{Valid: true}, nil
		}
		return VerifyResult{}, errors.Wrap(err, "getting ledger head")
	}

	prevHash := GenesisHash
	expected := uint64(1)
	for expected <= head.Height {
		blocks, err := svc.repo.QueryBlocks(ctx, expected, head.Height, verifyPageSize)
		if err != nil {
			return VerifyResult{}, errors.Wrap(err, "querying blocks")
		}
		if len(blocks) == 0 {
			return invalid(head.Height, expected, "missing block"), nil
		}
		for _, b := range blocks {
			switch {
			case b.Height != expected:
				return invalid(head.Height, expected, "missing block"), nil
			case b.PrevHash != prevHash:
				return invalid(head.Height, b.Height, "previous hash mismatch"), nil
			case b.ComputeHash() != b.Hash:
				return invalid(head.Height, b.Height, "hash mismatch"), nil
			}
			prevHash = b.Hash
			expected++
		}
		if err = ctx.Err(); err != nil {
			return VerifyResult{}, err
		}
	}
	return VerifyResult{Valid: true, Height: head.Height}, nil
}

func invalid(height, bad uint64, reason string) VerifyResult {
	return VerifyResult{Height: height, BadHeight: bad, Reason: fmt.Sprintf("block %d: %s", bad, reason)}
}
