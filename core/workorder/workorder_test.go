package workorder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdsPhase(t *testing.T) {
	th := DefaultThresholds()
	shares := []float64{0.10, 0.35, 0.40, 0.55, 0.60, 0.78, 0.80, 0.95, 1}
	want := []int{1, 1, 1, 2, 2, 3, 3, 4, 4}
	for i, s := range shares {
		if got := th.Phase(s); got != want[i] {
			t.Errorf("share %v: expected phase %d got %d", s, want[i], got)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	bad := []Thresholds{{}, {0.5, 0.4, 0.8}, {0.4, 0.6, 1.2}}
	for _, b := range bad {
		assert.ErrorIs(t, b.Validate(), ErrInvalidThresholds)
	}
	var zero Thresholds
	zero.SetDefaults()
	assert.Equal(t, DefaultThresholds(), zero)
}

func TestRankTasks(t *testing.T) {
	tasks := []Task{
		{BuildingID: "B"},
		{BuildingID: "H", Critical: true},
		{BuildingID: "A"},
		{BuildingID: "ghost"},
	}
	RankTasks(tasks, []string{"Z", "A", "B", "H"})
	assert.Equal(t, 3, tasks[0].PlanOrder)
	assert.Equal(t, 0, tasks[1].PlanOrder)
	assert.Equal(t, 2, tasks[2].PlanOrder)
	assert.Equal(t, UnplannedRank, tasks[3].PlanOrder)
}

func TestBucket_CostShares(t *testing.T) {
	// remaining total 1000, cumulative shares .10 .35 .55 .78 .95 1.0
	costs := []float64{100, 250, 200, 230, 170, 50}
	var tasks []Task
	for i, c := range costs {
		tasks = append(tasks, Task{BuildingID: string(rune('a' + i)), SegmentID: "s", CostTotal: c, PlanOrder: i + 1})
	}
	out, summary := Bucket(tasks, DefaultThresholds())
	var phases []int
	for _, o := range out {
		phases = append(phases, o.Phase)
	}
	assert.Equal(t, []int{1, 1, 2, 3, 4, 4}, phases)
	require.Len(t, summary, 4)
	assert.Equal(t, PhaseSummary{Phase: 1, Cost: 350, Tasks: 2}, summary[0])
	assert.Equal(t, PhaseSummary{Phase: 4, Cost: 220, Tasks: 2}, summary[3])
}

func TestBucket_WithinBuildingMostExpensiveFirst(t *testing.T) {
	tasks := []Task{
		{BuildingID: "A", SegmentID: "cheap", CostTotal: 10, TimeTotalH: 1, PlanOrder: 1},
		{BuildingID: "A", SegmentID: "slow", CostTotal: 50, TimeTotalH: 9, PlanOrder: 1},
		{BuildingID: "A", SegmentID: "fast", CostTotal: 50, TimeTotalH: 2, PlanOrder: 1},
		{BuildingID: "B", SegmentID: "big", CostTotal: 500, PlanOrder: 2},
	}
	out, _ := Bucket(tasks, DefaultThresholds())
	var ids []string
	for _, o := range out {
		ids = append(ids, o.SegmentID)
	}
	assert.Equal(t, []string{"slow", "fast", "cheap", "big"}, ids)
}

func TestBucket_CriticalAlwaysPhaseZero(t *testing.T) {
	tasks := []Task{
		{BuildingID: "H", SegmentID: "h1", Critical: true, CostTotal: 1e6, TimeTotalH: 3},
		{BuildingID: "A", SegmentID: "a1", CostTotal: 10, TimeTotalH: 1, PlanOrder: 1},
		{BuildingID: "B", SegmentID: "b1", CostTotal: 10, TimeTotalH: 1, PlanOrder: 2},
	}
	out, summary := Bucket(tasks, DefaultThresholds())
	require.Len(t, out, 3)
	assert.Equal(t, "h1", out[0].SegmentID)
	assert.Equal(t, 0, out[0].Phase)
	for _, o := range out[1:] {
		assert.NotEqual(t, 0, o.Phase)
	}
	assert.Equal(t, 0, summary[0].Phase)
	assert.Equal(t, 1, summary[0].Tasks)
}

func TestBucket_ZeroRemainingCostCollapses(t *testing.T) {
	tasks := []Task{
		{BuildingID: "H", SegmentID: "h1", Critical: true, CostTotal: 100, TimeTotalH: 2},
		{BuildingID: "A", SegmentID: "a1", CostTotal: 0, PlanOrder: 1},
		{BuildingID: "B", SegmentID: "b1", CostTotal: 0, PlanOrder: 2},
	}
	out, summary := Bucket(tasks, DefaultThresholds())
	for _, o := range out {
		assert.Equal(t, 0, o.Phase)
	}
	require.Len(t, summary, 1)
	assert.Equal(t, 3, summary[0].Tasks)
	assert.InDelta(t, 1.0, out[len(out)-1].PctCumAll, 1e-12)
}

func TestBucket_CumulativeMonotone(t *testing.T) {
	tasks := []Task{
		{BuildingID: "H", SegmentID: "h", Critical: true, CostTotal: 30, TimeTotalH: 2},
		{BuildingID: "A", SegmentID: "a", CostTotal: 20, TimeTotalH: 1, PlanOrder: 2},
		{BuildingID: "B", SegmentID: "b", CostTotal: 40, TimeTotalH: 5, PlanOrder: 1},
		{BuildingID: "C", SegmentID: "c", CostTotal: 10, TimeTotalH: 1, PlanOrder: UnplannedRank},
	}
	out, _ := Bucket(tasks, DefaultThresholds())
	prev := 0.0
	for _, o := range out {
		assert.GreaterOrEqual(t, o.PctCumAll, prev)
		prev = o.PctCumAll
	}
	assert.InDelta(t, 1.0, prev, 1e-12)
	last := out[len(out)-1]
	assert.Equal(t, "c", last.SegmentID)
	assert.InDelta(t, 100.0, last.CostCum, 1e-9)
	assert.InDelta(t, 9.0, last.TimeCumH, 1e-9)
}

func TestBucket_Empty(t *testing.T) {
	out, summary := Bucket(nil, DefaultThresholds())
	assert.Empty(t, out)
	assert.Empty(t, summary)
}

func TestAssemble_PartitionAndFeasibility(t *testing.T) {
	tasks := []Task{
		{BuildingID: "A", SegmentID: "a1", CostTotal: 300, TimeTotalH: 3},
		{BuildingID: "H", SegmentID: "h1", Critical: true, CostTotal: 100, TimeTotalH: 4},
		{BuildingID: "B", SegmentID: "b1", CostTotal: 200, TimeTotalH: 2},
		{BuildingID: "H", SegmentID: "h2", Critical: true, CostTotal: 400, TimeTotalH: 6},
		{BuildingID: "Z", SegmentID: "z1", CostTotal: 500, TimeTotalH: 1},
	}
	sched, err := Assemble(tasks, []string{"B", "A", "H"}, Budget{GeneratorHours: 20, Margin: 0.2}, DefaultThresholds())
	require.NoError(t, err)
	require.Len(t, sched.Orders, len(tasks))

	var ids []string
	critical := 0
	for _, o := range sched.Orders {
		ids = append(ids, o.SegmentID)
		if o.Phase == 0 {
			assert.True(t, o.Critical)
			critical++
		} else {
			assert.False(t, o.Critical)
		}
	}
	assert.Equal(t, 2, critical)
	assert.Equal(t, []string{"h2", "h1", "b1", "a1", "z1"}, ids)

	assert.InDelta(t, 10.0, sched.Feasibility.NeededHours, 1e-9)
	assert.InDelta(t, 16.0, sched.Feasibility.TargetHours, 1e-9)
	assert.True(t, sched.Feasibility.MarginOK)

	// input slice is left untouched
	assert.Equal(t, 0, tasks[0].PlanOrder)
}

func TestAssemble_InfeasibleIsReported(t *testing.T) {
	tasks := []Task{{BuildingID: "H", SegmentID: "h", Critical: true, CostTotal: 1, TimeTotalH: 17}}
	sched, err := Assemble(tasks, nil, Budget{GeneratorHours: 20, Margin: 0.2}, DefaultThresholds())
	require.NoError(t, err)
	assert.False(t, sched.Feasibility.MarginOK)
	assert.Equal(t, 17.0, sched.Feasibility.NeededHours)
}

func TestAssemble_InvalidInputs(t *testing.T) {
	_, err := Assemble(nil, nil, Budget{GeneratorHours: 10, Margin: 1.5}, DefaultThresholds())
	if !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget got %v", err)
	}
	_, err = Assemble(nil, nil, Budget{GeneratorHours: 10}, Thresholds{Phase1: 0.9, Phase2: 0.5, Phase3: 0.6})
	if !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds got %v", err)
	}
}
