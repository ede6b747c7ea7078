package planner_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

var defaults = spec.Defaults{MinorRoadLengthM: 30, PedCrossingWidthM: 4, SpeedKmh: 50}

func breakpointsAt(positions ...int) []planner.Breakpoint {
	return lo.Map(positions, func(pos int, _ int) planner.Breakpoint {
		return planner.Breakpoint{Pos: pos}
	})
}

func sitesOf(crossings []planner.Crossing) []planner.CrossingSite {
	return lo.Map(crossings, func(c planner.Crossing, _ int) planner.CrossingSite { return c.Site })
}

func TestPlanCrossingsCrossJunction(t *testing.T) {
	ev := spec.Event{
		Kind: spec.EventCross, PosM: 200, SnappedPos: 200,
		Placement: &spec.CrossingPlacement{West: true, East: true},
	}
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), ruleLower)
	assert.Equal(t, []planner.CrossingSite{
		planner.SiteMinorNorth, planner.SiteMinorSouth,
		planner.SiteMainWest, planner.SiteMainEast,
	}, sitesOf(crossings))

	west := crossings[2]
	assert.Equal(t, 0, west.SegWest)
	assert.Equal(t, 200, west.SegEast)
	assert.Equal(t, planner.HalfNone, west.Half)
	assert.Equal(t, 4.0, west.Width)
	assert.False(t, west.Signalized)
}

func TestPlanCrossingsTeeOnlyDeclaredBranch(t *testing.T) {
	ev := tee(0, 200, 200)
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), ruleLower)
	assert.Equal(t, []planner.CrossingSite{planner.SiteMinorNorth}, sitesOf(crossings))
}

func TestPlanCrossingsSplitHalves(t *testing.T) {
	ev := spec.Event{
		Kind: spec.EventTee, Branch: spec.MinorNorth, PosM: 200, SnappedPos: 200,
		Placement:          &spec.CrossingPlacement{West: true},
		RefugeIslandOnMain: true,
	}
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), ruleLower)
	require.Len(t, crossings, 3)
	eb, wb := crossings[1], crossings[2]
	assert.Equal(t, planner.SiteMainWest, eb.Site)
	assert.Equal(t, planner.HalfEB, eb.Half)
	assert.Equal(t, planner.HalfWB, wb.Half)
	assert.True(t, eb.Refuge)
}

func TestPlanCrossingsWestOmittedAtCorridorStart(t *testing.T) {
	ev := spec.Event{
		Kind: spec.EventTee, Branch: spec.MinorSouth, PosM: 0, SnappedPos: 0,
		Placement: &spec.CrossingPlacement{West: true, East: true},
	}
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 400), ruleLower)
	assert.Equal(t, []planner.CrossingSite{planner.SiteMinorSouth, planner.SiteMainEast}, sitesOf(crossings))
}

func TestPlanCrossingsMidblockSegmentSide(t *testing.T) {
	ev := midblock(0, 200, 200)
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), ruleLower)
	require.Len(t, crossings, 1)
	assert.Equal(t, planner.SiteMidblock, crossings[0].Site)
	// toward_lower prefers the west segment
	assert.Equal(t, 0, crossings[0].SegWest)
	assert.Equal(t, 200, crossings[0].SegEast)

	higher := spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardHigher}
	crossings = planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), higher)
	require.Len(t, crossings, 1)
	assert.Equal(t, 200, crossings[0].SegWest)
	assert.Equal(t, 400, crossings[0].SegEast)
}

func TestPlanCrossingsSplitMidblock(t *testing.T) {
	ev := midblock(0, 200, 200)
	ev.RefugeIslandOnMain = true
	clusters, err := planner.BuildClusters([]spec.Event{ev}, ruleLower)
	require.NoError(t, err)

	crossings := planner.PlanCrossings(defaults, clusters, breakpointsAt(0, 200, 400), ruleLower)
	require.Len(t, crossings, 2)
	assert.Equal(t, planner.HalfEB, crossings[0].Half)
	assert.Equal(t, planner.HalfWB, crossings[1].Half)
}
