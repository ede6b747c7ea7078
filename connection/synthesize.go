// Package connection computes the lane-to-lane vehicle connection
// assignment for every legal movement at every junction.
package connection

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/corridor-tools/corridorgen/builder"
	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// Target is one outbound leg of a movement: the edge it feeds and that
// edge's lane count.
type Target struct {
	Edge  string
	Lanes int
}

// Assignment maps one (edge, source lane) onto one (edge, target lane)
// for one movement. Lanes are 1-based counted from the median.
type Assignment struct {
	Pos      int
	Movement spec.Movement
	FromEdge string
	FromLane int
	ToEdge   string
	ToLane   int
	TLID     string // controlling traffic light, empty when unsignalized
}

func (a Assignment) key() string {
	return fmt.Sprintf("%s>%s:%d>%d", a.FromEdge, a.ToEdge, a.FromLane, a.ToLane)
}

// Synthesize computes the full connection assignment set over every
// junction cluster, in deterministic west-to-east, approach-by-
// approach order. The corridor follows left-hand traffic: left turns
// stay on their own side of the median, right turns and U-turns cross
// the centerline and are the movements a continuous median removes.
func Synthesize(cs *spec.CorridorSpec, clusters []planner.Cluster, breakpoints []planner.Breakpoint, overrides planner.Overrides) ([]Assignment, error) {
	positions := planner.Positions(breakpoints)
	var out []Assignment

	for i := range clusters {
		c := &clusters[i]
		if c.Junction == nil {
			continue
		}
		tpl, ok := cs.Template(c.Junction)
		if !ok {
			// The loader guarantees reference integrity; reaching this
			// is a planner defect.
			return nil, &errs.BuildError{
				Junction: builder.ClusterNode(c.Pos),
				Reason:   fmt.Sprintf("junction template %q vanished after validation", c.Junction.Template),
			}
		}
		assignments, err := synthesizeJunction(cs, c, tpl, positions, overrides)
		if err != nil {
			return nil, err
		}
		out = append(out, assignments...)
	}

	out = dedupe(out)
	log.Infof("connection assignments: %d", len(out))
	return out, nil
}

func synthesizeJunction(cs *spec.CorridorSpec, c *planner.Cluster, tpl spec.JunctionTemplate, positions []int, overrides planner.Overrides) ([]Assignment, error) {
	pos := c.Pos
	west, east, hasWest, hasEast := planner.Neighbors(positions, pos)
	tlID := ""
	if c.Signalized() {
		tlID = builder.ClusterNode(pos)
	}
	// main_u_turn_allowed=false strips main-road U-turns in both
	// directions before any lane allocation runs.
	allowU := c.Junction.UTurnAllowed()

	existNorth := c.Junction.Kind == spec.EventCross || c.Junction.Branch == spec.MinorNorth
	existSouth := c.Junction.Kind == spec.EventCross || c.Junction.Branch == spec.MinorSouth

	pickMain := func(dir spec.MainDirection, a, b int) int {
		return planner.PickLanes(dir, a, b, cs.MainRoad.Lanes, overrides)
	}

	var out []Assignment
	emit := func(approach spec.Approach, inEdge string, sCount int, targets map[spec.Maneuver]*Target) error {
		assignments, err := forApproach(builder.ClusterNode(pos), approach, inEdge, sCount, targets, tlID, pos)
		if err != nil {
			return err
		}
		out = append(out, assignments...)
		return nil
	}

	// Main-road eastbound approach (arrives from the west).
	if hasWest {
		targets := map[spec.Maneuver]*Target{}
		if existNorth {
			targets[spec.Left] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorNorth), Lanes: tpl.MinorLanesFromMain}
		}
		if hasEast {
			targets[spec.Through] = &Target{Edge: builder.SegmentEdge(spec.DirEB, pos, east), Lanes: pickMain(spec.DirEB, pos, east)}
		}
		if existSouth {
			targets[spec.Right] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorSouth), Lanes: tpl.MinorLanesFromMain}
		}
		if allowU {
			if uLanes := pickMain(spec.DirWB, west, pos); uLanes > 0 {
				targets[spec.UTurn] = &Target{Edge: builder.SegmentEdge(spec.DirWB, west, pos), Lanes: uLanes}
			}
		}
		if tpl.MedianContinuous {
			delete(targets, spec.Right)
			delete(targets, spec.UTurn)
		}
		if err := emit(spec.ApproachMainEB, builder.SegmentEdge(spec.DirEB, west, pos), pickMain(spec.DirEB, west, pos), targets); err != nil {
			return nil, err
		}
	}

	// Main-road westbound approach (arrives from the east).
	if hasEast {
		targets := map[spec.Maneuver]*Target{}
		if existSouth {
			targets[spec.Left] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorSouth), Lanes: tpl.MinorLanesFromMain}
		}
		if hasWest {
			targets[spec.Through] = &Target{Edge: builder.SegmentEdge(spec.DirWB, west, pos), Lanes: pickMain(spec.DirWB, west, pos)}
		}
		if existNorth {
			targets[spec.Right] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorNorth), Lanes: tpl.MinorLanesFromMain}
		}
		if allowU {
			if uLanes := pickMain(spec.DirEB, pos, east); uLanes > 0 {
				targets[spec.UTurn] = &Target{Edge: builder.SegmentEdge(spec.DirEB, pos, east), Lanes: uLanes}
			}
		}
		if tpl.MedianContinuous {
			delete(targets, spec.Right)
			delete(targets, spec.UTurn)
		}
		if err := emit(spec.ApproachMainWB, builder.SegmentEdge(spec.DirWB, pos, east), pickMain(spec.DirWB, pos, east), targets); err != nil {
			return nil, err
		}
	}

	// Minor approaches. A continuous median keeps minor traffic on its
	// own side: only the left turn onto the near carriageway survives.
	if existNorth {
		targets := map[spec.Maneuver]*Target{}
		if hasEast {
			if lanes := pickMain(spec.DirEB, pos, east); lanes > 0 {
				targets[spec.Left] = &Target{Edge: builder.SegmentEdge(spec.DirEB, pos, east), Lanes: lanes}
			}
		}
		if existSouth {
			targets[spec.Through] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorSouth), Lanes: tpl.MinorLanesFromMain}
		}
		if hasWest {
			if lanes := pickMain(spec.DirWB, west, pos); lanes > 0 {
				targets[spec.Right] = &Target{Edge: builder.SegmentEdge(spec.DirWB, west, pos), Lanes: lanes}
			}
		}
		if tpl.MedianContinuous {
			delete(targets, spec.Through)
			delete(targets, spec.Right)
		}
		if len(targets) == 0 {
			return nil, &errs.BuildError{
				Junction: builder.ClusterNode(pos),
				Leg:      spec.ApproachMinorN.String(),
				Reason:   "no movement targets available for the approach",
			}
		}
		if err := emit(spec.ApproachMinorN, builder.MinorEdge(pos, true, spec.MinorNorth), tpl.MinorLanesToMain, targets); err != nil {
			return nil, err
		}
	}

	if existSouth {
		targets := map[spec.Maneuver]*Target{}
		if hasWest {
			if lanes := pickMain(spec.DirWB, west, pos); lanes > 0 {
				targets[spec.Left] = &Target{Edge: builder.SegmentEdge(spec.DirWB, west, pos), Lanes: lanes}
			}
		}
		if existNorth {
			targets[spec.Through] = &Target{Edge: builder.MinorEdge(pos, false, spec.MinorNorth), Lanes: tpl.MinorLanesFromMain}
		}
		if hasEast {
			if lanes := pickMain(spec.DirEB, pos, east); lanes > 0 {
				targets[spec.Right] = &Target{Edge: builder.SegmentEdge(spec.DirEB, pos, east), Lanes: lanes}
			}
		}
		if tpl.MedianContinuous {
			delete(targets, spec.Through)
			delete(targets, spec.Right)
		}
		if len(targets) == 0 {
			return nil, &errs.BuildError{
				Junction: builder.ClusterNode(pos),
				Leg:      spec.ApproachMinorS.String(),
				Reason:   "no movement targets available for the approach",
			}
		}
		if err := emit(spec.ApproachMinorS, builder.MinorEdge(pos, true, spec.MinorSouth), tpl.MinorLanesToMain, targets); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// forApproach allocates lane permissions for one inbound edge and maps
// every granted maneuver onto its target lanes:
//   - Left: inside-out pairing, median-adjacent lane first; excess
//     source lanes compact onto the last paired target lane.
//   - Through: same-ordinal pairing; surplus source lanes bind to the
//     outermost target lane, surplus target lanes fan out from the
//     outermost source lane.
//   - Right / U-turn: outside-in pairing from the curb, sharing the
//     outermost target lane on overflow.
func forApproach(junctionID string, approach spec.Approach, inEdge string, sCount int, targets map[spec.Maneuver]*Target, tlID string, pos int) ([]Assignment, error) {
	want := map[spec.Maneuver]int{}
	for _, m := range spec.Maneuvers {
		if tg := targets[m]; tg != nil && tg.Lanes > 0 {
			want[m] = min(tg.Lanes, sCount)
		}
	}
	if sCount <= 0 {
		return nil, nil
	}
	if len(want) == 0 {
		return nil, &errs.BuildError{
			Junction: junctionID,
			Leg:      approach.String(),
			Reason:   fmt.Sprintf("no available movements (s=%d)", sCount),
		}
	}

	labels, err := Allocate(sCount, want[spec.Left], want[spec.Through], want[spec.Right], want[spec.UTurn])
	if err != nil {
		return nil, &errs.BuildError{
			Junction: junctionID,
			Leg:      approach.String(),
			Reason:   "lane allocation failed: " + err.Error(),
		}
	}
	log.Debugf("approach %s at %s: lanes=%v", approach, junctionID, labels)

	lanesFor := func(m spec.Maneuver) []int {
		var idx []int
		for i, label := range labels {
			if label.Has(m) {
				idx = append(idx, i+1)
			}
		}
		return idx
	}

	var out []Assignment
	add := func(m spec.Maneuver, fromLane, toLane int) {
		out = append(out, Assignment{
			Pos:      pos,
			Movement: spec.Movement{Approach: approach, Maneuver: m},
			FromEdge: inEdge,
			FromLane: fromLane,
			ToEdge:   targets[m].Edge,
			ToLane:   toLane,
			TLID:     tlID,
		})
	}

	for _, m := range spec.Maneuvers {
		if want[m] == 0 {
			continue
		}
		idx := lanesFor(m)
		target := targets[m]
		emitted := 0
		switch m {
		case spec.Left:
			for offset, fromLane := range idx {
				add(m, fromLane, min(offset+1, target.Lanes))
				emitted++
			}
		case spec.Through:
			matched := min(len(idx), target.Lanes)
			for offset := 0; offset < matched; offset++ {
				add(m, idx[offset], offset+1)
				emitted++
			}
			if len(idx) > target.Lanes {
				for _, fromLane := range idx[target.Lanes:] {
					add(m, fromLane, target.Lanes)
					emitted++
				}
			} else if target.Lanes > len(idx) {
				for toLane := len(idx) + 1; toLane <= target.Lanes; toLane++ {
					add(m, idx[len(idx)-1], toLane)
					emitted++
				}
			}
		case spec.Right, spec.UTurn:
			for offset := 0; offset < len(idx); offset++ {
				fromLane := idx[len(idx)-1-offset]
				toLane := target.Lanes
				if offset < target.Lanes {
					toLane = target.Lanes - offset
				}
				add(m, fromLane, toLane)
				emitted++
			}
		}
		// Every legal movement must end up with at least one lane.
		if emitted == 0 {
			return nil, &errs.BuildError{
				Junction: junctionID,
				Leg:      approach.String(),
				Movement: spec.Movement{Approach: approach, Maneuver: m}.String(),
				Reason:   "movement received no lane assignment",
			}
		}
	}
	return out, nil
}

// dedupe drops repeated (from, to, fromLane, toLane) tuples, keeping
// first occurrence. Duplicates are legal but redundant; they are
// logged so upstream configuration can be tightened.
func dedupe(assignments []Assignment) []Assignment {
	seen := map[string]struct{}{}
	return lo.Filter(assignments, func(a Assignment, _ int) bool {
		k := a.key()
		if _, dup := seen[k]; dup {
			log.Warnf("duplicate connection suppressed: %s %s", a.Movement, k)
			return false
		}
		seen[k] = struct{}{}
		return true
	})
}
