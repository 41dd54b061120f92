package partitions

import (
	"fmt"
)

// Partition is a group of decomposition jobs executed in order by one worker
type Partition struct {
	// Unique identifier for this partition
	ID int

	// Job membership
	Jobs    []int // Global job indices in this partition
	NumJobs int

	// Estimated work, the sum of the member job costs
	Cost float64
}

// PartitionLayout manages the complete ensemble split
type PartitionLayout struct {
	// All partitions of the ensemble
	Partitions []Partition

	// Global sizing information
	MaxJobs       int // max(NumJobs) across all partitions
	TotalJobs     int // Sum of all jobs across partitions
	NumPartitions int

	// Job to partition mapping
	JToP []int // Length TotalJobs: job j belongs to partition JToP[j]
}

// GetPartition returns the partition containing job j
func (pl *PartitionLayout) GetPartition(jobID int) int {
	if jobID < 0 || jobID >= len(pl.JToP) {
		return -1
	}
	return pl.JToP[jobID]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("layout holds %d partitions, expected %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.JToP) != pl.TotalJobs {
		return fmt.Errorf("JToP length %d != TotalJobs %d", len(pl.JToP), pl.TotalJobs)
	}

	seen := make([]bool, pl.TotalJobs)
	actualMax := 0
	for _, p := range pl.Partitions {
		if p.NumJobs != len(p.Jobs) {
			return fmt.Errorf("partition %d: NumJobs %d != len(Jobs) %d",
				p.ID, p.NumJobs, len(p.Jobs))
		}
		if p.NumJobs > actualMax {
			actualMax = p.NumJobs
		}
		for _, j := range p.Jobs {
			if j < 0 || j >= pl.TotalJobs {
				return fmt.Errorf("partition %d: job %d out of range", p.ID, j)
			}
			if seen[j] {
				return fmt.Errorf("job %d assigned twice", j)
			}
			if pl.JToP[j] != p.ID {
				return fmt.Errorf("job %d: JToP says partition %d, found in %d", j, pl.JToP[j], p.ID)
			}
			seen[j] = true
		}
	}
	for j, ok := range seen {
		if !ok {
			return fmt.Errorf("job %d is not assigned to any partition", j)
		}
	}
	if actualMax != pl.MaxJobs {
		return fmt.Errorf("computed MaxJobs %d != stored MaxJobs %d",
			actualMax, pl.MaxJobs)
	}
	return nil
}
