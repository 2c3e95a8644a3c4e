package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sky/skytrack/internal/catalog"
	"github.com/sky/skytrack/internal/transform"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	object     *catalog.TrackedObject
	targetTime time.Time
	gmst       float64 // precomputed GMST for targetTime
}

// propagateResult is the output of a single object propagation.
type propagateResult struct {
	position      SatellitePosition
	err           error
	catalogNumber int
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates every object in cat to targetTime. One failing
// object never aborts the batch: failures are logged with the object
// identity, counted, and skipped.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, cat *catalog.Catalog, targetTime time.Time) ([]SatellitePosition, int, int) {
	if cat.Len() == 0 {
		return nil, 0, 0
	}

	// GMST is the same for every object at this instant.
	gmst := transform.GMST(targetTime)

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range cat.Objects {
			job := propagateJob{
				object:     &cat.Objects[i],
				targetTime: targetTime,
				gmst:       gmst,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]SatellitePosition, 0, cat.Len())
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"catalog_number", result.catalogNumber,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	return positions, successCount, errorCount
}

// propagateSingle runs the orbit model and the geodetic conversion for one
// object.
func propagateSingle(job propagateJob) propagateResult {
	obj := job.object

	sv, err := obj.Model.PropagateTime(job.targetTime)
	if err != nil {
		return propagateResult{catalogNumber: obj.CatalogNumber, err: err}
	}

	geo, err := transform.ECIToGeodetic(sv.Position.X, sv.Position.Y, sv.Position.Z, job.gmst)
	if err != nil {
		return propagateResult{catalogNumber: obj.CatalogNumber, err: err}
	}

	return propagateResult{
		catalogNumber: obj.CatalogNumber,
		position: SatellitePosition{
			CatalogNumber: obj.CatalogNumber,
			Name:          obj.Name,
			Category:      obj.Category.String(),
			LatDeg:        geo.LatDeg,
			LonDeg:        geo.LonDeg,
			AltKm:         geo.AltKm,
		},
	}
}
