package hostbridge

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hostvm/evmbridge/core"
)

// MarshalBatch converts results concurrently and returns the conversions in
// matching positions. workers caps the number of concurrent conversions;
// zero or negative means one per CPU. The host must be safe for concurrent
// use (TableHost is, a single-threaded JS host is not).
//
// Ownership follows Marshal: the batch owns every input. On failure the
// rest are cancelled, results already marshalled are freed and results never
// reached are discarded, so either the whole batch is returned or no input
// buffer stays live anywhere. A nil entry in results fails the batch.
func (m *Marshaller) MarshalBatch(ctx context.Context, results []core.TerminationResult, workers int) ([]*ExecutionResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]*ExecutionResult, len(results))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, res := range results {
		i, res := i, res
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				// The batch owns its inputs; a result it never reaches is
				// released here so nothing dangles after a cancellation.
				core.Discard(res)
				return err
			}
			er, err := m.Marshal(res)
			if err != nil {
				return fmt.Errorf("result %d: %w", i, err)
			}
			out[i] = er
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, er := range out {
			if er == nil {
				continue
			}
			if ferr := er.Free(m.host); ferr != nil {
				m.log.Error().Err(ferr).Msg("freeing partial batch failed")
			}
		}
		return nil, err
	}
	return out, nil
}
