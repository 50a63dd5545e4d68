package node

import (
	"context"

	"golang.org/x/sync/errgroup"

	"p2sh_multisig/chain"
)

// UnspentSource is the part of BTCDaemon the fetcher needs.
type UnspentSource interface {
	ListUnspent(ctx context.Context, minConf int, addrs []string) ([]chain.Unspent, error)
}

// UnspentFetcher loads the UTXO sets of many wallet addresses concurrently.
type UnspentFetcher struct {
	source      UnspentSource
	minConf     int
	concurrency int
	maxRetries  int
}

func NewUnspentFetcher(source UnspentSource, minConf, concurrency int) *UnspentFetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &UnspentFetcher{
		source:      source,
		minConf:     minConf,
		concurrency: concurrency,
		maxRetries:  3,
	}
}

// Fetch returns the unspent outputs of each address, in addrs order. The
// first address that still fails after retries cancels the rest.
func (f *UnspentFetcher) Fetch(ctx context.Context, addrs []string) ([][]chain.Unspent, error) {
	results := make([][]chain.Unspent, len(addrs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			unspent, err := f.fetchOne(ctx, addr)
			if err != nil {
				return err
			}
			results[i] = unspent
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *UnspentFetcher) fetchOne(ctx context.Context, addr string) ([]chain.Unspent, error) {
	var err error
	for retry := 0; retry < f.maxRetries; retry++ {
		var unspent []chain.Unspent
		unspent, err = f.source.ListUnspent(ctx, f.minConf, []string{addr})
		if err == nil {
			log.Debugf("fetch: %s has %d unspent outputs", addr, len(unspent))
			return unspent, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("fetch: listunspent %s failed (attempt %d/%d): %v", addr, retry+1, f.maxRetries, err)
	}
	return nil, err
}
