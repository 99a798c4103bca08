package sefaria

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nlerner/breslov-rag/internal/catalog"
)

// DefaultBatchSize is how many chapter refs are fetched concurrently.
// Batches run strictly one after another so the shared limiter bounds the
// sustained request rate.
const DefaultBatchSize = 10

// Fetcher pulls whole works chapter by chapter through a Client.
type Fetcher struct {
	client    *Client
	batchSize int
}

// NewFetcher wraps client with the default batch size.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client, batchSize: DefaultBatchSize}
}

// WithBatchSize adjusts the per-batch concurrency. Values below 1 fall
// back to sequential fetching.
func (f *Fetcher) WithBatchSize(n int) *Fetcher {
	if n < 1 {
		n = 1
	}
	f.batchSize = n
	return f
}

// WorkResult is the outcome of fetching one work. Missing chapters (404s
// upstream) are simply absent from Passages; Failed lists refs that errored
// after retries were exhausted.
type WorkResult struct {
	Work     catalog.Work
	Passages []Passage
	Failed   []string
}

// FetchWork retrieves every chapter of a work. Individual chapter failures
// are recorded and skipped rather than aborting the work; only context
// cancellation stops the fetch early.
func (f *Fetcher) FetchWork(ctx context.Context, work catalog.Work, onChapter func()) (*WorkResult, error) {
	refs := work.Refs()
	result := &WorkResult{Work: work}

	collected := make([][]Passage, len(refs))
	var mu sync.Mutex

	for start := 0; start < len(refs); start += f.batchSize {
		end := start + f.batchSize
		if end > len(refs) {
			end = len(refs)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				passages, err := f.client.FetchChapter(gctx, refs[i])
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					log.Printf("sefaria: %s failed: %v", refs[i], err)
					mu.Lock()
					result.Failed = append(result.Failed, refs[i])
					mu.Unlock()
					return nil
				}
				collected[i] = passages
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if onChapter != nil {
			for i := start; i < end; i++ {
				onChapter()
			}
		}
	}

	for _, passages := range collected {
		result.Passages = append(result.Passages, passages...)
	}
	return result, nil
}

// FetchWorks runs FetchWork over several works in order. A work whose fetch
// is interrupted by cancellation propagates the error; everything gathered
// so far is returned alongside it.
func (f *Fetcher) FetchWorks(ctx context.Context, works []catalog.Work, onChapter func()) ([]*WorkResult, error) {
	results := make([]*WorkResult, 0, len(works))
	for _, work := range works {
		r, err := f.FetchWork(ctx, work, onChapter)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}
