package planner

import (
	"fmt"
	"sort"

	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/spec"
)

// Override widens one carriageway to Lanes over the grid-aligned
// interval [Start, End]. Owned by the junction whose template declared
// the approach widening.
type Override struct {
	Start int
	End   int
	Lanes int
}

// Overrides groups the override regions per main-road direction.
type Overrides struct {
	EB []Override
	WB []Override
}

// ComputeOverrides derives the lane override regions from junction
// templates: each junction widens its upstream approach on both
// carriageways over the snapped approach length. A zero widening is a
// no-op. Regions are clipped to [0, gridMax]; a region that would lie
// entirely outside the grid is a configuration error.
func ComputeOverrides(main spec.MainRoad, clusters []Cluster, templates map[string]spec.JunctionTemplate, rule spec.SnapRule) (Overrides, error) {
	gridMax := GridMax(main.LengthM, rule.StepM)
	var out Overrides

	for i := range clusters {
		c := &clusters[i]
		if c.Junction == nil {
			continue
		}
		tpl, ok := templates[c.Junction.Template]
		if !ok || tpl.MainApproachLanes <= 0 {
			continue
		}
		d := SnapDistance(float64(tpl.MainApproachBeginM), rule.StepM)
		log.Infof("lane override: pos=%d approach=%dm -> %dm, lanes=%d", c.Pos, tpl.MainApproachBeginM, d, tpl.MainApproachLanes)
		if d <= 0 {
			continue
		}
		if c.Pos-d > gridMax || c.Pos+d < 0 {
			return Overrides{}, &errs.ConfigError{
				Entity: fmt.Sprintf("junction_templates.%s", tpl.ID),
				Reason: fmt.Sprintf("approach region at pos=%d lies outside [0,%d]", c.Pos, gridMax),
			}
		}

		// Eastbound approaches the junction from the west.
		if start, end := max(0, c.Pos-d), min(gridMax, c.Pos); start < end {
			out.EB = append(out.EB, Override{Start: start, End: end, Lanes: tpl.MainApproachLanes})
		}
		// Westbound approaches from the east.
		if start, end := max(0, c.Pos), min(gridMax, c.Pos+d); start < end {
			out.WB = append(out.WB, Override{Start: start, End: end, Lanes: tpl.MainApproachLanes})
		}
	}

	sortOverrides(out.EB)
	sortOverrides(out.WB)
	return out, nil
}

func sortOverrides(regions []Override) {
	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Start != regions[j].Start {
			return regions[i].Start < regions[j].Start
		}
		return regions[i].End < regions[j].End
	})
}

// PickLanes resolves the lane count for the segment [west, east] of
// one carriageway: the base count, raised to the maximum of every
// overlapping override. Overlaps combine by maximum, never by sum.
func PickLanes(dir spec.MainDirection, west, east int, base int, overrides Overrides) int {
	regions := overrides.EB
	if dir == spec.DirWB {
		regions = overrides.WB
	}
	maxOverride := 0
	for _, ov := range regions {
		if east <= ov.Start || ov.End <= west {
			continue
		}
		if ov.Lanes > maxOverride {
			maxOverride = ov.Lanes
		}
	}
	return max(base, maxOverride)
}

// SegmentLanes is the resolved lane topology of one breakpoint-
// delimited main-road segment.
type SegmentLanes struct {
	West, East int
	EB, WB     int
}

// ResolveSegments produces the per-segment lane counts over the whole
// breakpoint sequence.
func ResolveSegments(main spec.MainRoad, breakpoints []Breakpoint, overrides Overrides) []SegmentLanes {
	positions := Positions(breakpoints)
	segments := make([]SegmentLanes, 0, len(positions)-1)
	for i := 0; i+1 < len(positions); i++ {
		west, east := positions[i], positions[i+1]
		segments = append(segments, SegmentLanes{
			West: west,
			East: east,
			EB:   PickLanes(spec.DirEB, west, east, main.Lanes, overrides),
			WB:   PickLanes(spec.DirWB, west, east, main.Lanes, overrides),
		})
	}
	return segments
}
