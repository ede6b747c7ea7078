package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

var ruleLower = spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardLower}

func tee(index int, pos float64, snapped int) spec.Event {
	return spec.Event{
		Kind: spec.EventTee, Branch: spec.MinorNorth,
		PosM: pos, Index: index, SnappedPos: snapped,
	}
}

func midblock(index int, pos float64, snapped int) spec.Event {
	return spec.Event{Kind: spec.EventMidblock, PosM: pos, Index: index, SnappedPos: snapped}
}

func TestBuildClustersSorted(t *testing.T) {
	clusters, err := planner.BuildClusters([]spec.Event{
		tee(0, 300, 300), midblock(1, 100, 100), tee(2, 200, 200),
	}, ruleLower)
	require.NoError(t, err)
	require.Len(t, clusters, 3)
	assert.Equal(t, 100, clusters[0].Pos)
	assert.Equal(t, 200, clusters[1].Pos)
	assert.Equal(t, 300, clusters[2].Pos)
	assert.Nil(t, clusters[0].Junction)
	assert.NotNil(t, clusters[0].Midblock)
	assert.NotNil(t, clusters[1].Junction)
}

func TestJunctionAbsorbsMidblock(t *testing.T) {
	j := tee(0, 200, 200)
	j.Placement = &spec.CrossingPlacement{West: true}
	m := midblock(1, 201.2, 200)
	m.RefugeIslandOnMain = true

	clusters, err := planner.BuildClusters([]spec.Event{j, m}, ruleLower)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.NotNil(t, c.Junction)
	assert.Nil(t, c.Midblock)
	// absorbed crossing came from the east side, placement is unioned
	assert.True(t, c.PlaceWest)
	assert.True(t, c.PlaceEast)
	assert.True(t, c.SplitMain)
	require.Len(t, c.Absorbed, 1)
	assert.Equal(t, 1, c.Absorbed[0].Index)
}

func TestAbsorptionTieBreakSide(t *testing.T) {
	// raw position exactly on the snapped position: tie-break decides
	j := tee(0, 200, 200)
	m := midblock(1, 200, 200)

	clusters, err := planner.BuildClusters([]spec.Event{j, m}, ruleLower)
	require.NoError(t, err)
	assert.True(t, clusters[0].PlaceWest)
	assert.False(t, clusters[0].PlaceEast)

	higher := spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardHigher}
	clusters, err = planner.BuildClusters([]spec.Event{j, m}, higher)
	require.NoError(t, err)
	assert.False(t, clusters[0].PlaceWest)
	assert.True(t, clusters[0].PlaceEast)
}

func TestDuplicateJunctions(t *testing.T) {
	_, err := planner.BuildClusters([]spec.Event{tee(0, 200, 200), tee(1, 201, 200)}, ruleLower)
	var dup *errs.DuplicateEventError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 200, dup.Pos)
	assert.Equal(t, []int{0, 1}, dup.Indices)
}

func TestDuplicateMidblocks(t *testing.T) {
	_, err := planner.BuildClusters([]spec.Event{midblock(0, 100, 100), midblock(1, 102, 100)}, ruleLower)
	var dup *errs.DuplicateEventError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, string(spec.EventMidblock), dup.Kind)
}

func TestCollectBreakpoints(t *testing.T) {
	main := spec.MainRoad{LengthM: 497, Lanes: 2}
	clusters, err := planner.BuildClusters([]spec.Event{tee(0, 200, 200), midblock(1, 350, 350)}, ruleLower)
	require.NoError(t, err)

	overrides := planner.Overrides{
		EB: []planner.Override{{Start: 150, End: 200, Lanes: 3}},
		WB: []planner.Override{{Start: 200, End: 250, Lanes: 3}},
	}
	breakpoints := planner.CollectBreakpoints(main, clusters, overrides, ruleLower)
	assert.Equal(t, []int{0, 150, 200, 250, 350, 495}, planner.Positions(breakpoints))

	byPos := map[int][]planner.Reason{}
	for _, bp := range breakpoints {
		byPos[bp.Pos] = bp.Reasons
	}
	assert.Equal(t, []planner.Reason{planner.ReasonEndpoint}, byPos[0])
	assert.Equal(t, []planner.Reason{planner.ReasonJunction, planner.ReasonLaneChange}, byPos[200])
	assert.Equal(t, []planner.Reason{planner.ReasonMidblock}, byPos[350])
}

func TestNeighbors(t *testing.T) {
	positions := []int{0, 100, 200, 495}

	west, east, hasWest, hasEast := planner.Neighbors(positions, 100)
	assert.True(t, hasWest)
	assert.True(t, hasEast)
	assert.Equal(t, 0, west)
	assert.Equal(t, 200, east)

	_, _, hasWest, hasEast = planner.Neighbors(positions, 0)
	assert.False(t, hasWest)
	assert.True(t, hasEast)

	_, _, hasWest, hasEast = planner.Neighbors(positions, 495)
	assert.True(t, hasWest)
	assert.False(t, hasEast)

	// not a breakpoint at all
	_, _, hasWest, hasEast = planner.Neighbors(positions, 150)
	assert.False(t, hasWest)
	assert.False(t, hasEast)
}
