package driver

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/sources"
)

// inflightFetch is one prefetched-but-unclaimed L1 block fetch, the
// l1_rpc_inflight entry from spec.md §3. id is a unique tag assigned to
// each fetch record; nothing in this package reads it.
type inflightFetch struct {
	id     uuid.UUID
	number uint64

	mu    sync.Mutex
	block *ethtypes.L1Block
	err   error
	done  chan struct{}
}

// Prefetcher schedules bounded, parallel look-ahead fetches of L1 blocks
// (spec.md §4.H). The Importer Loop claims completed fetches by number; any
// fetch still in flight when a reorg invalidates its number is simply left
// to finish and its result discarded unclaimed.
type Prefetcher struct {
	l1 *sources.L1Client

	mu       sync.Mutex
	inflight map[uint64]*inflightFetch
	gen      uint64 // incremented on every reorg to invalidate stale fetches
}

func NewPrefetcher(l1 *sources.L1Client) *Prefetcher {
	return &Prefetcher{
		l1:       l1,
		inflight: make(map[uint64]*inflightFetch),
	}
}

// Schedule launches fetches for every number in [from, to] not already
// in flight or already scheduled under the current generation.
func (p *Prefetcher) Schedule(ctx context.Context, from, to uint64) {
	p.mu.Lock()
	gen := p.gen
	var toLaunch []*inflightFetch
	for n := from; n <= to; n++ {
		if _, ok := p.inflight[n]; ok {
			continue
		}
		f := &inflightFetch{id: uuid.New(), number: n, done: make(chan struct{})}
		p.inflight[n] = f
		toLaunch = append(toLaunch, f)
	}
	p.mu.Unlock()

	if len(toLaunch) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range toLaunch {
		f := f
		g.Go(func() error {
			block, err := p.l1.GetBlock(gctx, f.number)
			f.mu.Lock()
			f.block, f.err = block, err
			f.mu.Unlock()
			close(f.done)

			p.mu.Lock()
			stale := p.gen != gen
			p.mu.Unlock()
			if stale {
				// A reorg invalidated this number's generation; leave the
				// result for InvalidateFrom to have already dropped, and do
				// not propagate an error that would cancel siblings.
				return nil
			}
			return nil
		})
	}
	// Fetches run in the background; callers claim results via Claim, not by
	// waiting on this errgroup. Errors surface per-fetch, not in aggregate.
	go func() { _ = g.Wait() }()
}

// Claim blocks until the fetch for number completes, then removes it from
// the inflight set and returns its result.
func (p *Prefetcher) Claim(ctx context.Context, number uint64) (*ethtypes.L1Block, error) {
	p.mu.Lock()
	f, ok := p.inflight[number]
	p.mu.Unlock()
	if !ok {
		p.Schedule(ctx, number, number)
		p.mu.Lock()
		f = p.inflight[number]
		p.mu.Unlock()
	}

	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	delete(p.inflight, number)
	p.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.block, f.err
}

// InvalidateFrom discards every in-flight fetch for number >= boundary and
// bumps the generation counter so any already-running fetch for those
// numbers is ignored on completion (spec.md §4.H cancellation).
func (p *Prefetcher) InvalidateFrom(boundary uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	for n := range p.inflight {
		if n >= boundary {
			delete(p.inflight, n)
		}
	}
}
