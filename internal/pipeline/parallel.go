package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/plansight/internal/detect"
	"github.com/MeKo-Tech/plansight/internal/tiler"
)

// tileJob represents a single tile detection job.
type tileJob struct {
	index int
	tile  tiler.Tile
}

// tileResult represents the outcome of one tile's detection.
type tileResult struct {
	index int
	dets  []detect.Detection
	err   error
}

// detectTiles fans tile detection out over a worker pool and collects the
// reprojected detections in tile order. Each worker owns its tile exclusively;
// the fan-in concatenation is the only point where results meet.
func (p *Pipeline) detectTiles(ctx context.Context, tiles []tiler.Tile) ([]detect.Detection, error) {
	if len(tiles) == 0 {
		return nil, nil
	}

	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tiles) {
		workers = len(tiles)
	}

	if workers == 1 {
		return p.detectTilesSequential(ctx, tiles)
	}

	jobs := make(chan tileJob, len(tiles))
	results := make(chan tileResult, len(tiles))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.tileWorker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, t := range tiles {
			select {
			case jobs <- tileJob{index: i, tile: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	perTile := make([][]detect.Detection, len(tiles))
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("tile %d: %w", r.index, r.err)
			}
			continue
		}
		perTile[r.index] = r.dets
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Deterministic fan-in: concatenate in tile order.
	var all []detect.Detection
	for _, dets := range perTile {
		all = append(all, dets...)
	}
	return all, nil
}

// tileWorker consumes tile jobs until the channel closes or the context ends.
func (p *Pipeline) tileWorker(ctx context.Context, jobs <-chan tileJob,
	results chan<- tileResult, wg *sync.WaitGroup,
) {
	defer wg.Done()
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			dets, err := p.detectOneTile(ctx, job.tile)
			select {
			case results <- tileResult{index: job.index, dets: dets, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// detectTilesSequential is the single-worker path.
func (p *Pipeline) detectTilesSequential(ctx context.Context, tiles []tiler.Tile) ([]detect.Detection, error) {
	var all []detect.Detection
	for i, t := range tiles {
		dets, err := p.detectOneTile(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		all = append(all, dets...)
	}
	return all, nil
}

// detectOneTile runs the detector on one tile, decodes class indices and
// reprojects the boxes into full-image coordinates.
func (p *Pipeline) detectOneTile(ctx context.Context, t tiler.Tile) ([]detect.Detection, error) {
	raws, err := p.detector.Predict(ctx, t.Image, p.opts.ConfThreshold, p.opts.IoUThreshold)
	if err != nil {
		return nil, err
	}
	dets := detect.Decode(raws, p.table, t.Index)
	return tiler.ReprojectDetections(dets, t), nil
}
