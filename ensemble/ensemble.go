// Package ensemble runs independent POD/DMD decompositions concurrently.
// Jobs are split over workers with a partitions.PartitionLayout; every
// worker runs its partition sequentially.
package ensemble

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notargets/flowmodes/decomposition"
	"github.com/notargets/flowmodes/logging"
	"github.com/notargets/flowmodes/partitions"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Kind selects the decomposition a job runs.
type Kind string

const (
	KindPOD Kind = "pod"
	KindDMD Kind = "dmd"
)

// Job is one decomposition of one snapshot matrix. Exactly one of POD or
// DMD options is used, according to Kind.
type Job struct {
	ID     uuid.UUID
	Name   string
	Kind   Kind
	Matrix mat.Matrix
	POD    decomposition.PODOptions
	DMD    decomposition.DMDOptions
}

// Outcome is the result of one job. Err is set when the decomposition
// failed or was never started because the context ended.
type Outcome struct {
	JobID     uuid.UUID
	Name      string
	Partition int
	POD       *decomposition.PODResult
	DMD       *decomposition.DMDResult
	Elapsed   time.Duration
	Err       error
}

// Config controls worker count and job distribution.
type Config struct {
	Workers  int
	Strategy partitions.PartitionStrategy
}

// Run executes the jobs and returns one outcome per job, in job order.
// Jobs without an ID are assigned a random one. Decomposition errors are
// reported per job; Run itself only fails on a bad layout.
func Run(ctx context.Context, jobs []Job, cfg Config) ([]Outcome, error) {
	costs := make([]float64, len(jobs))
	for j := range jobs {
		if jobs[j].ID == uuid.Nil {
			jobs[j].ID = uuid.New()
		}
		if jobs[j].Matrix != nil {
			nr, nc := jobs[j].Matrix.Dims()
			costs[j] = float64(nr) * float64(nc)
		}
	}

	pb := &partitions.PartitionBuilder{
		NumJobs:    len(jobs),
		Costs:      costs,
		NumWorkers: cfg.Workers,
		Strategy:   cfg.Strategy,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, err
	}
	stats := layout.PartitionStatistics()
	logging.Debugw("ensemble layout",
		"jobs", len(jobs),
		"partitions", layout.NumPartitions,
		"imbalance", stats.Imbalance)

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for _, part := range layout.Partitions {
		part := part
		g.Go(func() error {
			for _, j := range part.Jobs {
				outcomes[j] = runJob(gctx, jobs[j], part.ID)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func runJob(ctx context.Context, job Job, partition int) Outcome {
	out := Outcome{JobID: job.ID, Name: job.Name, Partition: partition}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	if job.Matrix == nil {
		out.Err = fmt.Errorf("job %s has no snapshot matrix", job.ID)
		return out
	}
	start := time.Now()
	switch job.Kind {
	case KindPOD:
		out.POD, out.Err = decomposition.DecomposePOD(job.Matrix, job.POD)
	case KindDMD:
		out.DMD, out.Err = decomposition.DecomposeDMD(job.Matrix, job.DMD)
	default:
		out.Err = fmt.Errorf("job %s: unknown kind %q", job.ID, job.Kind)
	}
	out.Elapsed = time.Since(start)
	if out.Err != nil {
		logging.Warnw("ensemble job failed", "job", job.ID.String(), "name", job.Name, "error", out.Err)
	}
	return out
}
