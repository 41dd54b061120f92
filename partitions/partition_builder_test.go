package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockPartition(t *testing.T) {
	pb := &PartitionBuilder{NumJobs: 7, NumWorkers: 3, Strategy: BlockPartition}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)

	assert.Equal(t, 3, layout.NumPartitions)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1, 2}, layout.JToP)
	assert.Equal(t, []int{6}, layout.Partitions[2].Jobs)
	assert.Equal(t, 3, layout.MaxJobs)
	assert.Equal(t, 1, layout.GetPartition(4))
	assert.Equal(t, -1, layout.GetPartition(7))
}

func TestRoundRobinPartition(t *testing.T) {
	pb := &PartitionBuilder{NumJobs: 5, NumWorkers: 2, Strategy: RoundRobin}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, layout.Partitions[0].Jobs)
	assert.Equal(t, []int{1, 3}, layout.Partitions[1].Jobs)
}

func TestCostBalancedPartition(t *testing.T) {
	costs := []float64{10, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	pb := &PartitionBuilder{NumJobs: len(costs), Costs: costs, NumWorkers: 2, Strategy: CostBalanced}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)

	stats := layout.PartitionStatistics()
	assert.Equal(t, 10., stats.MaxCost)
	assert.Equal(t, 10., stats.MinCost)
	assert.InDelta(t, 1., stats.Imbalance, 1.e-12)
	assert.Equal(t, 1, layout.Partitions[layout.JToP[0]].NumJobs)

	block, err := (&PartitionBuilder{NumJobs: len(costs), Costs: costs, NumWorkers: 2}).BuildPartitions()
	require.NoError(t, err)
	assert.Greater(t, block.PartitionStatistics().Imbalance, stats.Imbalance)
}

func TestMoreWorkersThanJobs(t *testing.T) {
	layout, err := (&PartitionBuilder{NumJobs: 2, NumWorkers: 8}).BuildPartitions()
	require.NoError(t, err)
	assert.Equal(t, 2, layout.NumPartitions)

	empty, err := (&PartitionBuilder{NumJobs: 0, NumWorkers: 4}).BuildPartitions()
	require.NoError(t, err)
	assert.Equal(t, 1, empty.NumPartitions)
	assert.Empty(t, empty.Partitions[0].Jobs)
}

func TestValidateLayoutDetectsCorruption(t *testing.T) {
	layout, err := (&PartitionBuilder{NumJobs: 4, NumWorkers: 2}).BuildPartitions()
	require.NoError(t, err)
	layout.JToP[0] = 1
	assert.Error(t, layout.ValidateLayout())

	_, err = (&PartitionBuilder{NumJobs: 3, Costs: []float64{1}}).BuildPartitions()
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]PartitionStrategy{
		"": BlockPartition, "block": BlockPartition, "roundrobin": RoundRobin, "cost": CostBalanced,
	} {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("metis")
	assert.Error(t, err)
}
