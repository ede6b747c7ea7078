package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-tools/corridorgen/connection"
	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/signal"
	"github.com/corridor-tools/corridorgen/spec"
)

const tlID = "Cluster.200.Main"

func vehicle(approach spec.Approach, mv spec.Maneuver) connection.Assignment {
	return connection.Assignment{
		Pos:      200,
		Movement: spec.Movement{Approach: approach, Maneuver: mv},
		TLID:     tlID,
	}
}

func phase(duration int, tokens ...string) spec.SignalPhase {
	p := spec.SignalPhase{DurationS: duration, Allow: tokens}
	for _, tok := range tokens {
		sel, err := spec.ParsePhaseToken(tok)
		if err != nil {
			panic(err)
		}
		p.Selectors = append(p.Selectors, sel)
	}
	return p
}

func signalized(profileID string, twoStage bool) []planner.Cluster {
	ev := spec.Event{
		Kind: spec.EventCross, PosM: 200, SnappedPos: 200,
		Signalized: true,
		Signal:     &spec.SignalRef{ProfileID: profileID, OffsetS: 10},
	}
	if twoStage {
		yes := true
		ev.RefugeIslandOnMain = true
		ev.TwoStageTLLControl = &yes
	}
	clusters, err := planner.BuildClusters([]spec.Event{ev}, spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardLower})
	if err != nil {
		panic(err)
	}
	return clusters
}

func corridorWith(p spec.SignalProfile) *spec.CorridorSpec {
	p.Kind = spec.EventCross
	return &spec.CorridorSpec{
		Profiles: map[spec.EventKind]map[string]spec.SignalProfile{
			spec.EventCross: {p.ID: p},
		},
	}
}

func TestBuildLinksOrder(t *testing.T) {
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Through),
		vehicle(spec.ApproachMainEB, spec.Right),
		{Pos: 300, Movement: spec.Movement{Approach: spec.ApproachMainEB, Maneuver: spec.Through}}, // unsignalized
	}
	crossings := []planner.Crossing{
		{Pos: 200, Site: planner.SiteMinorNorth, Signalized: true},
		{Pos: 200, Site: planner.SiteMainWest, Signalized: true},
		{Pos: 300, Site: planner.SiteMidblock, Signalized: false},
	}

	links := signal.BuildLinks(assignments, crossings)
	require.Len(t, links, 1)
	tl := links[tlID]
	require.Len(t, tl, 4)
	// connections first in synthesis order, then crossings
	assert.Equal(t, 0, tl[0].Index)
	assert.NotNil(t, tl[0].Vehicle)
	assert.NotNil(t, tl[1].Vehicle)
	assert.NotNil(t, tl[2].Crossing)
	assert.Equal(t, planner.SiteMinorNorth, tl[2].Crossing.Site)
	assert.Equal(t, 3, tl[3].Index)
}

func TestResolveProgram(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "p60", CycleS: 60, YellowDurationS: 3, PedEarlyCutoffS: 5,
		PedConflicts: spec.PedConflictPolicy{Left: false, Right: true},
		Phases: []spec.SignalPhase{
			phase(40, "main_T", "main_R", "pedestrian"),
			phase(20, "main_L", "pedestrian"),
		},
	}
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Left),
		vehicle(spec.ApproachMainEB, spec.Through),
		vehicle(spec.ApproachMainEB, spec.Right),
	}
	crossings := []planner.Crossing{
		{Pos: 200, Site: planner.SiteMinorNorth, Signalized: true},
		{Pos: 200, Site: planner.SiteMainWest, Signalized: true},
	}
	links := signal.BuildLinks(assignments, crossings)

	programs, err := signal.Resolve(corridorWith(profile), signalized("p60", false), links)
	require.NoError(t, err)
	require.Len(t, programs, 1)

	p := programs[0]
	assert.Equal(t, tlID, p.TLID)
	assert.Equal(t, 10, p.Offset)

	// slot order: EB left, EB through, EB right, minor-north walk,
	// main-west walk. Through and right run the first phase with a
	// three second yellow tail; the left turn runs the second phase
	// and its yellow wraps over the cycle end. The minor-north walk
	// is cut five seconds early because the left turn goes green
	// right after it; the main-west walk is never released since a
	// through or left movement drives across it in every phase.
	want := []signal.Phase{
		{DurationS: 35, State: "rGgGr"},
		{DurationS: 2, State: "rGgrr"},
		{DurationS: 3, State: "ryyrr"},
		{DurationS: 17, State: "Grrrr"},
		{DurationS: 3, State: "yrrrr"},
	}
	assert.Equal(t, want, p.Phases)
}

func TestResolveRightGrantCarriesUTurn(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "p30", CycleS: 30, YellowDurationS: 0,
		Phases: []spec.SignalPhase{
			phase(20, "main_R"),
			phase(10, "main_T"),
		},
	}
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Through),
		vehicle(spec.ApproachMainEB, spec.Right),
		vehicle(spec.ApproachMainEB, spec.UTurn),
	}
	links := signal.BuildLinks(assignments, nil)

	programs, err := signal.Resolve(corridorWith(profile), signalized("p30", false), links)
	require.NoError(t, err)
	require.Len(t, programs[0].Phases, 2)
	// the U-turn follows the right grant with a protected green
	assert.Equal(t, signal.Phase{DurationS: 20, State: "rgG"}, programs[0].Phases[0])
	assert.Equal(t, signal.Phase{DurationS: 10, State: "Grr"}, programs[0].Phases[1])
}

func TestResolveSplitHalvesCoupling(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "p30", CycleS: 30, YellowDurationS: 0,
		Phases: []spec.SignalPhase{
			phase(20, "main_T", "pedestrian"),
			phase(10, "minor_T"),
		},
	}
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Through),
	}
	crossings := []planner.Crossing{
		{Pos: 200, Site: planner.SiteMainWest, Half: planner.HalfEB, Signalized: true},
		{Pos: 200, Site: planner.SiteMainWest, Half: planner.HalfWB, Signalized: true},
	}
	links := signal.BuildLinks(assignments, crossings)

	// single-stage: the blocked eastbound half forces both halves red
	programs, err := signal.Resolve(corridorWith(profile), signalized("p30", false), links)
	require.NoError(t, err)
	assert.Equal(t, []signal.Phase{
		{DurationS: 20, State: "Grr"},
		{DurationS: 10, State: "rrr"},
	}, programs[0].Phases)

	// two-stage: the westbound half is released independently
	programs, err = signal.Resolve(corridorWith(profile), signalized("p30", true), links)
	require.NoError(t, err)
	assert.Equal(t, []signal.Phase{
		{DurationS: 20, State: "GrG"},
		{DurationS: 10, State: "rrr"},
	}, programs[0].Phases)
}

func TestResolveCutoffNeedsFollowingVehicleGreen(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "p30", CycleS: 30, YellowDurationS: 0, PedEarlyCutoffS: 5,
		Phases: []spec.SignalPhase{
			phase(20, "pedestrian"),
			phase(10),
		},
	}
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Through),
	}
	crossings := []planner.Crossing{
		{Pos: 200, Site: planner.SiteMinorNorth, Signalized: true},
	}
	links := signal.BuildLinks(assignments, crossings)

	programs, err := signal.Resolve(corridorWith(profile), signalized("p30", false), links)
	require.NoError(t, err)
	// no vehicle ever goes green after the walk ends, so the walk
	// keeps its full interval
	assert.Equal(t, []signal.Phase{
		{DurationS: 20, State: "rG"},
		{DurationS: 10, State: "rr"},
	}, programs[0].Phases)
}

func TestResolveRejectsCycleMismatch(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "bad", CycleS: 60, YellowDurationS: 3,
		Phases: []spec.SignalPhase{phase(40, "main_T")},
	}
	assignments := []connection.Assignment{vehicle(spec.ApproachMainEB, spec.Through)}
	links := signal.BuildLinks(assignments, nil)

	_, err := signal.Resolve(corridorWith(profile), signalized("bad", false), links)
	var cfgErr *errs.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "cycle")
}

func TestResolveSkipsUnsignalizedClusters(t *testing.T) {
	ev := spec.Event{Kind: spec.EventTee, Branch: spec.MinorNorth, PosM: 100, SnappedPos: 100}
	clusters, err := planner.BuildClusters([]spec.Event{ev}, spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardLower})
	require.NoError(t, err)

	programs, err := signal.Resolve(&spec.CorridorSpec{}, clusters, nil)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestResolveYellowOnlyAtRunEnd(t *testing.T) {
	profile := spec.SignalProfile{
		ID: "p40", CycleS: 40, YellowDurationS: 4,
		Phases: []spec.SignalPhase{
			phase(20, "main_T"),
			phase(15, "main_T"),
			phase(5, "minor_T"),
		},
	}
	assignments := []connection.Assignment{
		vehicle(spec.ApproachMainEB, spec.Through),
		vehicle(spec.ApproachMinorN, spec.Through),
	}
	links := signal.BuildLinks(assignments, nil)

	programs, err := signal.Resolve(corridorWith(profile), signalized("p40", false), links)
	require.NoError(t, err)
	require.Len(t, programs, 1)

	// the main through green spans the first two phases as one run;
	// yellow covers only the final seconds of that run
	assert.Equal(t, []signal.Phase{
		{DurationS: 31, State: "Gr"},
		{DurationS: 4, State: "yr"},
		{DurationS: 1, State: "rG"},
		{DurationS: 4, State: "ry"},
	}, programs[0].Phases)
}
