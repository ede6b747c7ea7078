package planner

import (
	"github.com/corridor-tools/corridorgen/spec"
)

// CrossingSite locates a pedestrian crossing relative to its cluster.
type CrossingSite int

const (
	SiteMinorNorth CrossingSite = iota // across the north minor arm
	SiteMinorSouth                     // across the south minor arm
	SiteMainWest                       // across the main road, west of the junction
	SiteMainEast                       // across the main road, east of the junction
	SiteMidblock                       // across the main road, mid-block event
)

func (s CrossingSite) String() string {
	switch s {
	case SiteMinorNorth:
		return "minor_north"
	case SiteMinorSouth:
		return "minor_south"
	case SiteMainWest:
		return "main_west"
	case SiteMainEast:
		return "main_east"
	default:
		return "midblock"
	}
}

// CrossingHalf distinguishes the two halves of a split (two-stage)
// main-road crossing. The eastbound carriageway is the north half.
type CrossingHalf int

const (
	HalfNone CrossingHalf = iota
	HalfEB
	HalfWB
)

func (h CrossingHalf) String() string {
	switch h {
	case HalfEB:
		return "EB"
	case HalfWB:
		return "WB"
	default:
		return ""
	}
}

// Crossing is one planned pedestrian crossing segment. A split
// main-road crossing yields two Crossing values sharing Site and
// segment bounds, each anchored on one side of the refuge island.
type Crossing struct {
	Pos  int
	Site CrossingSite
	Half CrossingHalf

	// Segment bounds of the crossed main-road segment; unused for
	// minor-arm crossings.
	SegWest int
	SegEast int

	Width      float64
	Refuge     bool // anchored at a refuge island
	Signalized bool
}

// PlanCrossings derives the crossing geometry for every cluster:
// minor-arm crossings always, main-road crossings per resolved
// placement flags, mid-block crossings for non-absorbed events. A
// refuge island splits a main-road or mid-block crossing into two
// independently describable halves.
func PlanCrossings(defaults spec.Defaults, clusters []Cluster, breakpoints []Breakpoint, rule spec.SnapRule) []Crossing {
	positions := Positions(breakpoints)
	width := defaults.PedCrossingWidthM
	var out []Crossing

	addMain := func(c *Cluster, site CrossingSite, segWest, segEast int) {
		base := Crossing{
			Pos: c.Pos, Site: site,
			SegWest: segWest, SegEast: segEast,
			Width: width, Refuge: c.SplitMain, Signalized: c.Signalized(),
		}
		if c.SplitMain {
			eb, wb := base, base
			eb.Half, wb.Half = HalfEB, HalfWB
			out = append(out, eb, wb)
		} else {
			out = append(out, base)
		}
	}

	for i := range clusters {
		c := &clusters[i]
		west, east, hasWest, hasEast := Neighbors(positions, c.Pos)

		if c.Junction != nil {
			// The minor-road crossing is always planned.
			for _, side := range junctionBranches(c.Junction) {
				site := SiteMinorNorth
				if side == spec.MinorSouth {
					site = SiteMinorSouth
				}
				out = append(out, Crossing{
					Pos: c.Pos, Site: site,
					Width: width, Signalized: c.Signalized(),
				})
			}
			if c.PlaceWest {
				if hasWest {
					addMain(c, SiteMainWest, west, c.Pos)
				} else {
					log.Warnf("junction at pos=%d: no segment west of the corridor start, west crossing omitted", c.Pos)
				}
			}
			if c.PlaceEast {
				if hasEast {
					addMain(c, SiteMainEast, c.Pos, east)
				} else {
					log.Warnf("junction at pos=%d: no segment east of the corridor end, east crossing omitted", c.Pos)
				}
			}
			continue
		}

		if c.Midblock == nil {
			continue
		}
		// A mid-block crossing spans one adjacent segment; the side is
		// ambiguous and follows the snap tie-break policy.
		segWest, segEast, ok := midblockSegment(c.Pos, west, east, hasWest, hasEast, rule)
		if !ok {
			log.Warnf("midblock at pos=%d: no adjacent main segment, crossing omitted", c.Pos)
			continue
		}
		log.Warnf("midblock at pos=%d: segment [%d,%d] chosen by %s", c.Pos, segWest, segEast, rule.TieBreak)
		addMain(c, SiteMidblock, segWest, segEast)
	}
	log.Infof("crossings planned: %d", len(out))
	return out
}

// junctionBranches lists the minor arms a junction owns: both for a
// cross, the declared branch for a tee.
func junctionBranches(ev *spec.Event) []spec.MinorSide {
	if ev.Kind == spec.EventCross {
		return []spec.MinorSide{spec.MinorNorth, spec.MinorSouth}
	}
	return []spec.MinorSide{ev.Branch}
}

func midblockSegment(pos, west, east int, hasWest, hasEast bool, rule spec.SnapRule) (int, int, bool) {
	preferWest := rule.TieBreak == spec.TieBreakTowardLower
	if preferWest {
		if hasWest {
			return west, pos, true
		}
		if hasEast {
			return pos, east, true
		}
	} else {
		if hasEast {
			return pos, east, true
		}
		if hasWest {
			return west, pos, true
		}
	}
	return 0, 0, false
}
