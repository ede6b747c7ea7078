// Package signal resolves fixed-cycle signal profiles into concrete
// per-junction programs: one state timeline per controlled link,
// yellow transitions, pedestrian protection and timeline compression.
package signal

import (
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// Relation classifies how a green vehicle movement interacts with a
// walk interval on a crossing.
type Relation int

const (
	// Stop means the movement drives straight through the crossing;
	// the walk must be red while the movement is green.
	Stop Relation = iota
	// LeftYield marks a left turn that sweeps the crossing and is
	// expected to give way. Tolerated only when the profile's
	// pedestrian_conflicts.left is set.
	LeftYield
	// RightYield likewise for right turns and U-turns, gated on
	// pedestrian_conflicts.right.
	RightYield
)

// conflictSite locates the crossing (or crossing half) a movement
// interacts with. HalfNone on the entry side means the interaction
// covers both halves.
type conflictSite struct {
	Site planner.CrossingSite
	Half planner.CrossingHalf
}

type conflictEntry struct {
	conflictSite
	Relation Relation
}

// matches reports whether the entry covers the given crossing. An
// unsplit crossing spans the whole road, so it matches an entry
// scoped to either half; an entry with HalfNone matches either half
// of a split crossing.
func (e conflictEntry) matches(c *planner.Crossing) bool {
	if e.Site != c.Site {
		return false
	}
	return e.Half == planner.HalfNone || c.Half == planner.HalfNone || e.Half == c.Half
}

// vehicleConflicts maps every movement onto the crossings its path
// touches. Geometry is left-hand traffic: eastbound runs the north
// carriageway, so an eastbound approach from the west crosses the
// north half of the west crossing on entry.
var vehicleConflicts = map[spec.Movement][]conflictEntry{
	{Approach: spec.ApproachMainEB, Maneuver: spec.Left}: {
		{conflictSite{planner.SiteMainWest, planner.HalfEB}, Stop},
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, LeftYield},
	},
	{Approach: spec.ApproachMainEB, Maneuver: spec.Through}: {
		{conflictSite{planner.SiteMainWest, planner.HalfEB}, Stop},
		{conflictSite{planner.SiteMainEast, planner.HalfEB}, Stop},
		{conflictSite{planner.SiteMidblock, planner.HalfNone}, Stop},
	},
	{Approach: spec.ApproachMainEB, Maneuver: spec.Right}: {
		{conflictSite{planner.SiteMainWest, planner.HalfEB}, Stop},
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, RightYield},
	},
	{Approach: spec.ApproachMainEB, Maneuver: spec.UTurn}: {
		{conflictSite{planner.SiteMainWest, planner.HalfEB}, Stop},
		{conflictSite{planner.SiteMainWest, planner.HalfWB}, RightYield},
	},
	{Approach: spec.ApproachMainWB, Maneuver: spec.Left}: {
		{conflictSite{planner.SiteMainEast, planner.HalfWB}, Stop},
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, LeftYield},
	},
	{Approach: spec.ApproachMainWB, Maneuver: spec.Through}: {
		{conflictSite{planner.SiteMainEast, planner.HalfWB}, Stop},
		{conflictSite{planner.SiteMainWest, planner.HalfWB}, Stop},
		{conflictSite{planner.SiteMidblock, planner.HalfNone}, Stop},
	},
	{Approach: spec.ApproachMainWB, Maneuver: spec.Right}: {
		{conflictSite{planner.SiteMainEast, planner.HalfWB}, Stop},
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, RightYield},
	},
	{Approach: spec.ApproachMainWB, Maneuver: spec.UTurn}: {
		{conflictSite{planner.SiteMainEast, planner.HalfWB}, Stop},
		{conflictSite{planner.SiteMainEast, planner.HalfEB}, RightYield},
	},
	{Approach: spec.ApproachMinorN, Maneuver: spec.Left}: {
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, Stop},
		{conflictSite{planner.SiteMainEast, planner.HalfEB}, LeftYield},
	},
	{Approach: spec.ApproachMinorN, Maneuver: spec.Through}: {
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, Stop},
	},
	{Approach: spec.ApproachMinorN, Maneuver: spec.Right}: {
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, Stop},
		{conflictSite{planner.SiteMainWest, planner.HalfWB}, RightYield},
	},
	{Approach: spec.ApproachMinorN, Maneuver: spec.UTurn}: {
		{conflictSite{planner.SiteMinorNorth, planner.HalfNone}, Stop},
	},
	{Approach: spec.ApproachMinorS, Maneuver: spec.Left}: {
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, Stop},
		{conflictSite{planner.SiteMainWest, planner.HalfWB}, LeftYield},
	},
	{Approach: spec.ApproachMinorS, Maneuver: spec.Through}: {
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, Stop},
	},
	{Approach: spec.ApproachMinorS, Maneuver: spec.Right}: {
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, Stop},
		{conflictSite{planner.SiteMainEast, planner.HalfEB}, RightYield},
	},
	{Approach: spec.ApproachMinorS, Maneuver: spec.UTurn}: {
		{conflictSite{planner.SiteMinorSouth, planner.HalfNone}, Stop},
	},
}

// walkAllowed decides a crossing's state in a phase: the phase must
// grant pedestrians, and no green vehicle movement may hold a
// conflict the policy does not tolerate.
func walkAllowed(c *planner.Crossing, greens []spec.Movement, pedGranted bool, policy spec.PedConflictPolicy) bool {
	if !pedGranted {
		return false
	}
	for _, mv := range greens {
		for _, e := range vehicleConflicts[mv] {
			if !e.matches(c) {
				continue
			}
			switch e.Relation {
			case Stop:
				return false
			case LeftYield:
				if !policy.Left {
					return false
				}
			case RightYield:
				if !policy.Right {
					return false
				}
			}
		}
	}
	return true
}
