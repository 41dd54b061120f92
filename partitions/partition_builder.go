package partitions

import (
	"fmt"
	"math"
	"sort"
)

// PartitionBuilder splits an ensemble of independent jobs over workers
type PartitionBuilder struct {
	NumJobs int
	// Costs optionally weights each job, e.g. elements × snapshots.
	// A nil slice treats every job as unit cost.
	Costs []float64

	// Partitioning parameters
	NumWorkers int
	Strategy   PartitionStrategy
}

// PartitionStrategy defines how jobs are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive jobs
	RoundRobin                              // Distribute cyclically
	CostBalanced                            // Longest job first onto the least loaded worker
)

// ParseStrategy converts a strategy name ("block", "roundrobin", "cost")
func ParseStrategy(s string) (PartitionStrategy, error) {
	switch s {
	case "", "block":
		return BlockPartition, nil
	case "roundrobin", "round-robin":
		return RoundRobin, nil
	case "cost":
		return CostBalanced, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", s)
}

// BuildPartitions creates a partition layout for the job list
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.NumJobs < 0 {
		return nil, fmt.Errorf("invalid job count %d", pb.NumJobs)
	}
	if pb.Costs != nil && len(pb.Costs) != pb.NumJobs {
		return nil, fmt.Errorf("Costs length %d does not match NumJobs=%d", len(pb.Costs), pb.NumJobs)
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the jobs
	jToP := pb.partitionJobs(numPartitions)

	// Create partition structures
	partitions := pb.createPartitions(jToP, numPartitions)

	layout := &PartitionLayout{
		Partitions:    partitions,
		MaxJobs:       calculateMaxJobs(partitions),
		TotalJobs:     pb.NumJobs,
		NumPartitions: numPartitions,
		JToP:          jToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions never creates more partitions than jobs
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := pb.NumWorkers
	if numPartitions > pb.NumJobs {
		numPartitions = pb.NumJobs
	}

	// Ensure at least one partition
	if numPartitions < 1 {
		numPartitions = 1
	}

	return numPartitions
}

func (pb *PartitionBuilder) cost(j int) float64 {
	if pb.Costs == nil {
		return 1
	}
	return pb.Costs[j]
}

// partitionJobs assigns jobs to partitions
func (pb *PartitionBuilder) partitionJobs(numPartitions int) []int {
	jToP := make([]int, pb.NumJobs)

	switch pb.Strategy {
	case RoundRobin:
		for j := 0; j < pb.NumJobs; j++ {
			jToP[j] = j % numPartitions
		}

	case CostBalanced:
		order := make([]int, pb.NumJobs)
		for j := range order {
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return pb.cost(order[a]) > pb.cost(order[b])
		})
		load := make([]float64, numPartitions)
		for _, j := range order {
			target := 0
			for p := 1; p < numPartitions; p++ {
				if load[p] < load[target] {
					target = p
				}
			}
			jToP[j] = target
			load[target] += pb.cost(j)
		}

	default:
		jobsPerPartition := int(math.Ceil(float64(pb.NumJobs) / float64(numPartitions)))
		if jobsPerPartition < 1 {
			jobsPerPartition = 1
		}
		for j := 0; j < pb.NumJobs; j++ {
			jToP[j] = j / jobsPerPartition
			if jToP[j] >= numPartitions {
				jToP[j] = numPartitions - 1
			}
		}
	}

	return jToP
}

// createPartitions builds partition structures from job assignments
func (pb *PartitionBuilder) createPartitions(jToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{
			ID:   i,
			Jobs: make([]int, 0),
		}
	}

	// Jobs keep ascending order within a partition
	for job, part := range jToP {
		partitions[part].Jobs = append(partitions[part].Jobs, job)
		partitions[part].NumJobs++
		partitions[part].Cost += pb.cost(job)
	}

	return partitions
}

// calculateMaxJobs finds maximum jobs across all partitions
func calculateMaxJobs(partitions []Partition) int {
	maxJobs := 0
	for _, p := range partitions {
		if p.NumJobs > maxJobs {
			maxJobs = p.NumJobs
		}
	}
	return maxJobs
}

// PartitionStatistics summarizes the load spread of a layout
func (layout *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: layout.NumPartitions,
		MinCost:       math.Inf(1),
	}

	var total float64
	for _, p := range layout.Partitions {
		total += p.Cost
		if p.Cost < stats.MinCost {
			stats.MinCost = p.Cost
		}
		if p.Cost > stats.MaxCost {
			stats.MaxCost = p.Cost
		}
	}
	if layout.NumPartitions == 0 {
		stats.MinCost = 0
		return stats
	}
	stats.AvgCost = total / float64(layout.NumPartitions)
	if stats.AvgCost > 0 {
		stats.Imbalance = stats.MaxCost / stats.AvgCost
	}

	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinCost       float64
	MaxCost       float64
	AvgCost       float64
	Imbalance     float64 // MaxCost / AvgCost
}
