// Package pipeline runs the whole corridor build: snapping, cluster
// reduction, lane planning, crossing planning, connection synthesis,
// signal resolution and document rendering, in that order. The first
// error at any stage aborts the build with nothing emitted.
package pipeline

import (
	"github.com/corridor-tools/corridorgen/connection"
	"github.com/corridor-tools/corridorgen/emitter"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/signal"
	"github.com/corridor-tools/corridorgen/spec"
)

// Result is the complete build output: every intermediate plan plus
// the four rendered documents.
type Result struct {
	Clusters    []planner.Cluster
	Breakpoints []planner.Breakpoint
	Overrides   planner.Overrides
	Segments    []planner.SegmentLanes
	Crossings   []planner.Crossing
	Assignments []connection.Assignment
	Programs    []signal.Program

	NodesXML       string
	EdgesXML       string
	ConnectionsXML string
	TLLXML         string
}

// Build runs every stage over a loaded corridor.
func Build(cs *spec.CorridorSpec) (*Result, error) {
	log.Infof("building corridor: length=%gm step=%dm events=%d",
		cs.MainRoad.LengthM, cs.Snap.StepM, len(cs.Events))

	events, err := planner.SnapEvents(cs)
	if err != nil {
		return nil, err
	}

	clusters, err := planner.BuildClusters(events, cs.Snap)
	if err != nil {
		return nil, err
	}

	overrides, err := planner.ComputeOverrides(cs.MainRoad, clusters, cs.Templates, cs.Snap)
	if err != nil {
		return nil, err
	}

	breakpoints := planner.CollectBreakpoints(cs.MainRoad, clusters, overrides, cs.Snap)
	segments := planner.ResolveSegments(cs.MainRoad, breakpoints, overrides)
	crossings := planner.PlanCrossings(cs.Defaults, clusters, breakpoints, cs.Snap)

	assignments, err := connection.Synthesize(cs, clusters, breakpoints, overrides)
	if err != nil {
		return nil, err
	}

	links := signal.BuildLinks(assignments, crossings)
	programs, err := signal.Resolve(cs, clusters, links)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Clusters:    clusters,
		Breakpoints: breakpoints,
		Overrides:   overrides,
		Segments:    segments,
		Crossings:   crossings,
		Assignments: assignments,
		Programs:    programs,

		NodesXML:       emitter.RenderNodes(cs.MainRoad, cs.Defaults, clusters, breakpoints),
		EdgesXML:       emitter.RenderEdges(cs, clusters, segments),
		ConnectionsXML: emitter.RenderConnections(assignments, crossings, links),
		TLLXML:         emitter.RenderTLL(programs),
	}
	log.Infof("build complete: %d breakpoints, %d connections, %d programs",
		len(breakpoints), len(assignments), len(programs))
	return res, nil
}
